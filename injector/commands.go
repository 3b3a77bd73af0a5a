package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/netip"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/nccgroup/asafw/internal/imagefile"
	"github.com/nccgroup/asafw/internal/lina"
	"github.com/nccgroup/asafw/internal/shellcode"
	"github.com/nccgroup/asafw/internal/target"
)

const outputPerm = 0o755

func newRootCommand(logger *log.Logger, out io.Writer) *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:           "injector",
		Short:         "Patch lina with a debug shell",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetOut(out)
	root.PersistentFlags().StringVarP(&dbPath, "db", "d", env.Str(dbEnv),
		"Target database (.json or .toml, $"+dbEnv+")")

	root.AddCommand(
		newInjectCommand(logger, &dbPath),
		newTargetsCommand(&dbPath),
	)

	return root
}

type injectOptions struct {
	dbPath     *string
	linaIn     string
	linaOut    string
	monitorIn  string
	monitorOut string
	index      int
	binName    string
	host       string
	port       int
	slide      uint64
	verbose    bool
}

func newInjectCommand(logger *log.Logger, dbPath *string) *cobra.Command {
	opts := &injectOptions{dbPath: dbPath}

	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Install the debug shell into lina (and patch lina_monitor on ASAv)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.linaIn, "lina", "f", "", "Input lina file")
	flags.StringVarP(&opts.linaOut, "lina-out", "o", "", "Output lina file")
	flags.StringVarP(&opts.monitorIn, "monitor", "F", "", "Input lina_monitor file (ASAv only)")
	flags.StringVarP(&opts.monitorOut, "monitor-out", "O", "", "Output lina_monitor file (ASAv only)")
	flags.IntVarP(&opts.index, "index", "i", -1, "Index of the target in the database")
	flags.StringVarP(&opts.binName, "bin", "b", "", "Firmware name used to find the target (default: guessed from the lina path)")
	flags.StringVarP(&opts.host, "cbhost", "c", env.Str(cbHostEnv, defaultCBHost),
		"Reverse shell address ($"+cbHostEnv+")")
	flags.IntVarP(&opts.port, "cbport", "p", env.Int(cbPortEnv, defaultCBPort),
		"Reverse shell port ($"+cbPortEnv+")")
	flags.Uint64Var(&opts.slide, "slide", 0, "ASLR slide added to addresses of ASLR targets")
	flags.BoolVarP(&opts.verbose, "verbose", "v", env.Bool(verboseEnv),
		"Display the relocated payload ($"+verboseEnv+")")
	_ = cmd.MarkFlagRequired("lina")
	_ = cmd.MarkFlagRequired("lina-out")

	return cmd
}

func (o *injectOptions) params() (shellcode.Params, error) {
	host, err := netip.ParseAddr(o.host)
	if err != nil {
		return shellcode.Params{}, fmt.Errorf("failed to parse callback host - %w", err)
	}

	if o.port <= 0 || o.port > math.MaxUint16 {
		return shellcode.Params{}, fmt.Errorf("callback port %d is out of range", o.port)
	}

	return shellcode.Params{
		Host:  host,
		Port:  uint16(o.port),
		Slide: o.slide,
	}, nil
}

func (o *injectOptions) run(logger *log.Logger) error {
	if *o.dbPath == "" {
		return fmt.Errorf("please specify a target database with '-d' or $%s", dbEnv)
	}

	params, err := o.params()
	if err != nil {
		return err
	}

	db, err := target.Load(*o.dbPath)
	if err != nil {
		return err
	}

	tgt, index, err := selectTarget(db, o.index, o.binName, o.linaIn, logger)
	if err != nil {
		return err
	}

	logger.Printf("Using index: %d for %s", index, tgt.Firmware)

	injector := lina.Injector{Log: logger, Verbose: o.verbose}

	var monitor []byte
	if lina.NeedsMonitorPatch(tgt) {
		monitor, err = o.patchMonitor(injector, tgt, logger)
		if err != nil {
			return err
		}
	}

	logger.Printf("Input lina file: %s", o.linaIn)

	linaData, err := imagefile.Read(o.linaIn)
	if err != nil {
		return fmt.Errorf("failed to read lina - %w", err)
	}

	logger.Printf("Size of unpatched lina: %d bytes", len(linaData))

	result, err := injector.InjectDebugShell(linaData, tgt, params)
	if err != nil {
		return err
	}

	// Both images are patched in memory before either is written.
	if monitor != nil {
		err = imagefile.WriteFile(o.monitorOut, monitor, outputPerm)
		if err != nil {
			return err
		}

		logger.Printf("Output lina_monitor file: %s", o.monitorOut)
	}

	err = imagefile.WriteFile(o.linaOut, result.Patched, outputPerm)
	if err != nil {
		return err
	}

	logger.Printf("Output lina file: %s", o.linaOut)

	return nil
}

func (o *injectOptions) patchMonitor(injector lina.Injector, tgt target.Target, logger *log.Logger) ([]byte, error) {
	if o.monitorIn == "" || o.monitorOut == "" {
		return nil, fmt.Errorf("%s is a virtual appliance, please specify '-F' and '-O' for lina_monitor",
			tgt.Firmware)
	}

	logger.Printf("Input lina_monitor file: %s", o.monitorIn)

	monitor, err := imagefile.Read(o.monitorIn)
	if err != nil {
		return nil, fmt.Errorf("failed to read lina_monitor - %w", err)
	}

	logger.Printf("Size of unpatched lina_monitor: %d bytes", len(monitor))

	return injector.PatchSignatureCheck(monitor, tgt)
}

// selectTarget picks a target by index, then by firmware name, then by
// the firmware name found in linaPath.
func selectTarget(db *target.DB, index int, binName string, linaPath string, logger *log.Logger) (target.Target, int, error) {
	if index >= 0 {
		tgt, err := db.At(index)
		return tgt, index, err
	}

	if binName == "" {
		logger.Println("WARN: No index or firmware name specified. Will guess based on lina path...")

		var err error
		binName, err = target.BinName(linaPath)
		if err != nil {
			return target.Target{}, -1, fmt.Errorf("failed to guess target - %w", err)
		}
	}

	return db.Find(binName)
}

func newTargetsCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the targets of a database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if *dbPath == "" {
				return errors.New("please specify a target database with '-d'")
			}

			db, err := target.Load(*dbPath)
			if err != nil {
				return err
			}

			return listTargets(cmd.OutOrStdout(), db)
		},
	}
}

func listTargets(w io.Writer, db *target.DB) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "INDEX\tFIRMWARE\tVERSION\tARCH\tASLR\tBASE")
	for i, tgt := range db.Targets {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%t\t0x%x\n",
			i, tgt.Firmware, tgt.Version, tgt.Arch, tgt.ASLR, tgt.Base())
	}

	return tw.Flush()
}
