package wasi

// Filetype classifies a file descriptor's target.
type Filetype uint8

const (
	FiletypeUnknown Filetype = iota
	FiletypeBlockDevice
	FiletypeCharacterDevice
	FiletypeDirectory
	FiletypeRegularFile
	FiletypeSocketDgram
	FiletypeSocketStream
	FiletypeSymbolicLink
)

// Oflags are path_open creation/exclusivity flags.
type Oflags uint16

const (
	OflagsCreat     Oflags = 1 << 0
	OflagsDirectory Oflags = 1 << 1
	OflagsExcl      Oflags = 1 << 2
	OflagsTrunc     Oflags = 1 << 3
)

// Fdflags are per-descriptor I/O mode flags.
type Fdflags uint16

const (
	FdflagsAppend   Fdflags = 1 << 0
	FdflagsDsync    Fdflags = 1 << 1
	FdflagsNonblock Fdflags = 1 << 2
	FdflagsRsync    Fdflags = 1 << 3
	FdflagsSync     Fdflags = 1 << 4
)

// Lookupflags control symlink resolution on path-taking calls.
type Lookupflags uint32

const LookupflagsSymlinkFollow Lookupflags = 1 << 0

// Fstflags select which filestat_set_times fields to apply.
type Fstflags uint16

const (
	FstflagsAtim    Fstflags = 1 << 0
	FstflagsAtimNow Fstflags = 1 << 1
	FstflagsMtim    Fstflags = 1 << 2
	FstflagsMtimNow Fstflags = 1 << 3
)

// Whence selects fd_seek's origin.
type Whence uint8

const (
	WhenceSet Whence = iota
	WhenceCur
	WhenceEnd
)

// Clockid selects a clock source for clock_* and subscription_clock.
type Clockid uint32

const (
	ClockidRealtime Clockid = iota
	ClockidMonotonic
	ClockidProcessCputimeID
	ClockidThreadCputimeID
)

// Advice hints fd_advise's access pattern.
type Advice uint8

const (
	AdviceNormal Advice = iota
	AdviceSequential
	AdviceRandom
	AdviceWillneed
	AdviceDontneed
	AdviceNoreuse
)

// Preopentype tags a prestat's variant; only dir is defined.
type Preopentype uint8

const PreopentypeDir Preopentype = 0

// Eventtype tags a subscription/event's variant.
type Eventtype uint8

const (
	EventtypeClock Eventtype = iota
	EventtypeFdRead
	EventtypeFdWrite
)

// Eventrwflags annotate an fd_read/fd_write event's outcome.
type Eventrwflags uint16

const EventrwflagsFdReadwriteHangup Eventrwflags = 1 << 0

// Subclockflags modify a subscription_clock's semantics.
type Subclockflags uint16

const SubclockflagsSubscriptionClockAbstime Subclockflags = 1 << 0
