package guest

// Encoding names the only guest string encoding this host supports.
const EncodingUTF8 = "utf-8"

// MountKind tags a MountPoint descriptor's variant.
type MountKind int

const (
	MountWorkspaceFolder MountKind = iota
	MountExtensionLocation
	MountVSCodeFileSystem
	MountInMemoryFileSystem
)

// MountPoint is one entry of ProcessOptions.MountPoints. Only the fields
// relevant to Kind are populated; the rest are zero.
type MountPoint struct {
	Kind MountKind

	// MountWorkspaceFolder / MountInMemoryFileSystem / MountVSCodeFileSystem
	Path string

	// MountExtensionLocation
	Extension string

	// MountVSCodeFileSystem
	URI string

	// MountInMemoryFileSystem
	FileSystem string // opaque identifier resolved by the caller's registry
}

// StdioKind tags a StdioDescriptor's variant.
type StdioKind int

const (
	StdioFile StdioKind = iota
	StdioTerminal
	StdioPipe
	StdioConsole
)

// StdioDescriptor configures one of the three stdio slots at process start.
type StdioDescriptor struct {
	Kind StdioKind
	Path string // StdioFile
}

// ProcessOptions is the full set of guest construction parameters spec.md
// §6 enumerates.
type ProcessOptions struct {
	Encoding    string
	Args        []string
	Env         map[string]string
	MountPoints []MountPoint
	Stdin       *StdioDescriptor
	Stdout      *StdioDescriptor
	Stderr      *StdioDescriptor
	Trace       bool
}

// NewProcessOptions returns a ProcessOptions with the only legal encoding
// already set, so callers only need to fill in what they care about.
func NewProcessOptions() ProcessOptions {
	return ProcessOptions{Encoding: EncodingUTF8, Env: map[string]string{}}
}
