package main

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nccgroup/asafw/internal/firmware"
	"github.com/nccgroup/asafw/internal/imagefile"
)

const outputPerm = 0o644

func newRootCommand(logger *log.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "asabin",
		Short:         "Unpack, repack and root ASA firmware images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newUnpackCommand(logger),
		newRepackCommand(logger),
		newPatchCommand(logger, "root", "Make the firmware boot into a root shell", "-rooted", firmware.Root),
		newPatchCommand(logger, "unroot", "Restore the stock kernel command line", "-unrooted", firmware.Unroot),
		newPatchCommand(logger, "noaslr", "Make the firmware boot with ASLR disabled", "-noaslr", firmware.DisableASLR),
	)

	return root
}

func newUnpackCommand(logger *log.Logger) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "unpack FIRMWARE",
		Short: "Extract the compressed filesystem and the kernel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fwPath := args[0]

			logger.Println("Unpacking...")

			img, err := imagefile.Read(fwPath)
			if err != nil {
				return fmt.Errorf("failed to read firmware - %w", err)
			}

			unpacked, err := firmware.Patcher{Log: logger}.Unpack(img)
			if err != nil {
				return fmt.Errorf("failed to unpack %s - %w", fwPath, err)
			}

			base := fwPath
			if outDir != "" {
				base = filepath.Join(outDir, filepath.Base(fwPath))
			}

			outputs := []struct {
				path string
				data []byte
			}{
				{path: imagefile.Sibling(base, "-initrd-original.gz"), data: unpacked.Initrd},
				{path: imagefile.Sibling(base, "-vmlinuz"), data: unpacked.Kernel},
			}

			for _, out := range outputs {
				logger.Printf("unpack: Writing %s (%d bytes)...", out.path, len(out.data))

				err = imagefile.WriteFile(out.path, out.data, outputPerm)
				if err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output-dir", "o", "", "Directory for the extracted files (default: next to the firmware)")

	return cmd
}

func newRepackCommand(logger *log.Logger) *cobra.Command {
	var gzPath string
	var outPath string
	var root bool
	var noASLR bool

	cmd := &cobra.Command{
		Use:   "repack FIRMWARE",
		Short: "Replace the compressed filesystem of a firmware image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fwPath := args[0]

			patch, err := firmware.SelectPatch(root, false, noASLR)
			if err != nil {
				return err
			}

			logger.Println("Repacking...")

			img, err := imagefile.Read(fwPath)
			if err != nil {
				return fmt.Errorf("failed to read firmware - %w", err)
			}

			gz, err := imagefile.Read(gzPath)
			if err != nil {
				return fmt.Errorf("failed to read gzip - %w", err)
			}

			p := firmware.Patcher{Log: logger}

			out, err := p.Repack(img, gz)
			if err != nil {
				return err
			}

			out, err = p.PatchCmdline(out, patch)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = imagefile.DerivedName(fwPath, "-repacked")
			}

			logger.Printf("repack: Writing %s (%d bytes)...", outPath, len(out))

			return imagefile.WriteFile(outPath, out, outputPerm)
		},
	}

	cmd.Flags().StringVarP(&gzPath, "gzip-file", "g", "", "Replacement compressed filesystem")
	cmd.Flags().StringVarP(&outPath, "output-file", "o", "", "Output firmware (default: FIRMWARE-repacked)")
	cmd.Flags().BoolVarP(&root, "root", "t", false, "Also root the repacked firmware")
	cmd.Flags().BoolVar(&noASLR, "noaslr", false, "Also disable ASLR in the repacked firmware (wins over --root)")
	_ = cmd.MarkFlagRequired("gzip-file")

	return cmd
}

func newPatchCommand(logger *log.Logger, name string, short string, suffix string, patch firmware.Patch) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   name + " FIRMWARE",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fwPath := args[0]

			img, err := imagefile.Read(fwPath)
			if err != nil {
				return fmt.Errorf("failed to read firmware - %w", err)
			}

			out, err := firmware.Patcher{Log: logger}.PatchCmdline(img, patch)
			if err != nil {
				return fmt.Errorf("failed to %s %s - %w", name, fwPath, err)
			}

			if outPath == "" {
				outPath = imagefile.DerivedName(fwPath, suffix)
			}

			logger.Printf("%s: Writing %s (%d bytes)...", name, outPath, len(out))

			return imagefile.WriteFile(outPath, out, outputPerm)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output-file", "o", "", "Output firmware (default: FIRMWARE"+suffix+")")

	return cmd
}
