package security

// Permissions are the access rights granted by the /P entry.
type Permissions struct {
	Print             bool // bit 3
	Modify            bool // bit 4
	Copy              bool // bit 5, copy and extract text and graphics
	ModifyAnnotations bool // bit 6
	FillForms         bool // bit 9
	ExtractAccessible bool // bit 10
	Assemble          bool // bit 11
	PrintHighQuality  bool // bit 12
}

// AllPermissions grants every right, as for unencrypted documents and owner
// authentication.
func AllPermissions() Permissions {
	return Permissions{
		Print:             true,
		Modify:            true,
		Copy:              true,
		ModifyAnnotations: true,
		FillForms:         true,
		ExtractAccessible: true,
		Assemble:          true,
		PrintHighQuality:  true,
	}
}

// permissionsFromP decodes the /P bits for revision r. Bits are numbered
// from 1 as in ISO 32000. Revision 2 files only define bits 3 to 6.
func permissionsFromP(p uint32, r int) Permissions {
	bit := func(n uint) bool { return p&(1<<(n-1)) != 0 }
	if r < 3 {
		return Permissions{
			Print:             bit(3),
			Modify:            bit(4),
			Copy:              bit(5),
			ModifyAnnotations: bit(6),
			FillForms:         bit(6),
			ExtractAccessible: bit(5),
			Assemble:          bit(4),
			PrintHighQuality:  bit(3),
		}
	}
	return Permissions{
		// Bit 3 without bit 12 allows degraded printing only.
		Print:             bit(3) || bit(12),
		Modify:            bit(4),
		Copy:              bit(5),
		ModifyAnnotations: bit(6),
		FillForms:         bit(6) || bit(9),
		ExtractAccessible: bit(10),
		Assemble:          bit(4) || bit(11),
		PrintHighQuality:  bit(12),
	}
}
