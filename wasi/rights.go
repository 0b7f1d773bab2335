package wasi

// Rights is the 64-bit capability bitmask carried by every file descriptor.
type Rights uint64

const (
	RightFdDatasync Rights = 1 << iota
	RightFdRead
	RightFdSeek
	RightFdFdstatSetFlags
	RightFdSync
	RightFdTell
	RightFdWrite
	RightFdAdvise
	RightFdAllocate
	RightPathCreateDirectory
	RightPathCreateFile
	RightPathLinkSource
	RightPathLinkTarget
	RightPathOpen
	RightFdReaddir
	RightPathReadlink
	RightPathRenameSource
	RightPathRenameTarget
	RightPathFilestatGet
	RightPathFilestatSetSize
	RightPathFilestatSetTimes
	RightFdFilestatGet
	RightFdFilestatSetSize
	RightFdFilestatSetTimes
	RightPathSymlink
	RightPathRemoveDirectory
	RightPathUnlinkFile
	RightPollFdReadwrite
	RightSockShutdown
	RightSockAccept
)

// Composite rights sets, exactly as spec.md §4.6 enumerates them.
const (
	FileBase      = RightFdDatasync | RightFdRead | RightFdSeek | RightFdFdstatSetFlags |
		RightFdSync | RightFdTell | RightFdWrite | RightFdAdvise | RightFdAllocate |
		RightFdFilestatGet | RightFdFilestatSetSize | RightFdFilestatSetTimes | RightPollFdReadwrite

	DirectoryBase = RightFdFdstatSetFlags | RightFdSync | RightFdAdvise |
		RightPathCreateDirectory | RightPathCreateFile | RightPathLinkSource | RightPathLinkTarget |
		RightPathOpen | RightFdReaddir | RightPathReadlink | RightPathRenameSource | RightPathRenameTarget |
		RightPathFilestatGet | RightPathFilestatSetSize | RightPathFilestatSetTimes |
		RightFdFilestatGet | RightPathSymlink | RightPathRemoveDirectory | RightPathUnlinkFile |
		RightPollFdReadwrite

	DirectoryInheriting = DirectoryBase | FileBase
	FileInheriting      = Rights(0)

	StdinBase  = RightFdRead | RightFdFilestatGet | RightPollFdReadwrite
	StdoutBase = RightFdFdstatSetFlags | RightFdWrite | RightFdFilestatGet | RightPollFdReadwrite

	CharacterDeviceBase = RightFdRead | RightFdWrite | RightFdFdstatSetFlags |
		RightFdFilestatGet | RightPollFdReadwrite
)

// ReadOnlyMask is ANDed into base/inheriting rights when a filesystem is
// mounted read-only: every mutating right is cleared, every read-only
// right (including directory traversal and stat) survives.
const ReadOnlyMask = RightFdDatasync | RightFdRead | RightFdSeek | RightFdTell |
	RightFdFilestatGet | RightFdReaddir | RightPathOpen | RightPathReadlink |
	RightPathFilestatGet | RightPollFdReadwrite

// Has reports whether all bits in needed are set in r.
func (r Rights) Has(needed Rights) bool { return r&needed == needed }
