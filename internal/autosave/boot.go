package autosave

import (
	"fmt"
	"strings"

	"github.com/roach88/autosave/internal/iocwriter"
)

// Platform is the target operating system family of an IOC.
type Platform int

const (
	PlatformLinux Platform = iota
	PlatformWindows
	PlatformWin32
	PlatformVxWorks
)

var platformNames = map[Platform]string{
	PlatformLinux:   "linux",
	PlatformWindows: "windows",
	PlatformWin32:   "win32",
	PlatformVxWorks: "vxWorks",
}

func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Platform(%d)", int(p))
}

// PlatformFromArch maps an EPICS target architecture such as
// "linux-x86_64" or "vxWorks-ppc604_long" to its platform.
func PlatformFromArch(arch string) (Platform, error) {
	family, _, _ := strings.Cut(arch, "-")
	for p, name := range platformNames {
		if family == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unsupported target architecture %q", arch)
}

// Beamline conventions checked in vxWorks beamline mode.
const (
	BeamlinePathPrefix    = "/dls_sw/"
	BeamlineGatewaySuffix = ".254"
	beamlineMountScript   = "/dls_sw/prod/etc/init/autosave_mount"
)

// Fixed persistence service settings.
const (
	requestSubdir       = "data"
	numSeqFiles         = 3
	seqPeriodSeconds    = 600
	directoryWaitPeriod = 10
	fastMonitorPeriod   = 5
	slowMonitorPeriod   = 30
)

// BootParams are the per-device inputs to boot sequence generation.
type BootParams struct {
	IOCName        string
	RequestPrefix  string
	Debug          int
	SkipPass1      bool
	Beamline       bool
	SubstituteBoot bool
	UID            int
	GID            int
}

// bootContext is what a platform function sees once preconditions pass.
type bootContext struct {
	conn   Connection
	params BootParams
}

func (c bootContext) savePath() string {
	return c.conn.RootPath + "/" + c.params.IOCName
}

// platformFuncs generate the platform block of the sequence. check runs
// first, for every platform, so no text exists until all preconditions hold.
type platformFuncs struct {
	check func(bootContext) error
	emit  func(bootContext) []string
}

// BootSequenceGenerator turns device parameters and connection parameters
// into the ordered boot commands for the autosave service.
type BootSequenceGenerator struct {
	platforms map[Platform]platformFuncs
}

// NewBootSequenceGenerator returns a generator for every supported platform.
// Windows and win32 share the linux commands.
func NewBootSequenceGenerator() *BootSequenceGenerator {
	posix := platformFuncs{check: checkPosix, emit: emitPosix}
	return &BootSequenceGenerator{
		platforms: map[Platform]platformFuncs{
			PlatformLinux:   posix,
			PlatformWindows: posix,
			PlatformWin32:   posix,
			PlatformVxWorks: {check: checkVxWorks, emit: emitVxWorks},
		},
	}
}

// Generate returns the initialisation commands, one per element, in the
// order they must appear in the boot script. An empty element is a blank line.
//
// Every precondition is checked before any command is produced; on error
// the returned slice is nil.
func (g *BootSequenceGenerator) Generate(platform Platform, conn Connection, params BootParams) ([]string, error) {
	fns, ok := g.platforms[platform]
	if !ok {
		return nil, fmt.Errorf("no autosave boot sequence for platform %s", platform)
	}

	ctx := bootContext{conn: conn, params: params}
	if err := checkCommon(ctx); err != nil {
		return nil, err
	}
	if err := fns.check(ctx); err != nil {
		return nil, err
	}

	lines := []string{"# Autosave and restore initialisation"}
	lines = append(lines, fns.emit(ctx)...)
	lines = append(lines, "")
	lines = append(lines, globalSettings(params)...)
	lines = append(lines, restoreFiles(params)...)
	return lines, nil
}

// PostInit returns the monitor set commands that run after iocInit.
func (g *BootSequenceGenerator) PostInit(prefix string) ([]string, error) {
	if prefix == "" {
		return nil, &MissingConfigurationError{Parameter: "request file prefix", Context: "no database file was added"}
	}
	return []string{
		fmt.Sprintf(`create_monitor_set "%s_0.req",  %d, ""`, prefix, fastMonitorPeriod),
		fmt.Sprintf(`create_monitor_set "%s_1.req", %d, ""`, prefix, slowMonitorPeriod),
		fmt.Sprintf(`create_monitor_set "%s_2.req", %d, ""`, prefix, slowMonitorPeriod),
	}, nil
}

func checkCommon(ctx bootContext) error {
	if ctx.conn.RootPath == "" {
		return &MissingConfigurationError{Parameter: "root path"}
	}
	if ctx.params.IOCName == "" {
		return &MissingConfigurationError{Parameter: "IOC name"}
	}
	if ctx.params.RequestPrefix == "" {
		return &MissingConfigurationError{Parameter: "request file prefix", Context: "no database file was added"}
	}
	return nil
}

func checkPosix(bootContext) error {
	return nil
}

func checkVxWorks(ctx bootContext) error {
	if ctx.conn.Address == "" {
		return &MissingConfigurationError{Parameter: "address", Context: "required on vxWorks"}
	}
	if ctx.params.Beamline {
		if !strings.HasPrefix(ctx.conn.RootPath, BeamlinePathPrefix) {
			return &ConfigurationMismatchError{
				Parameter: "path",
				Value:     ctx.conn.RootPath,
				Want:      fmt.Sprintf("start with %q", BeamlinePathPrefix),
			}
		}
		if !strings.HasSuffix(ctx.conn.Address, BeamlineGatewaySuffix) {
			return &ConfigurationMismatchError{
				Parameter: "address",
				Value:     ctx.conn.Address,
				Want:      fmt.Sprintf("end in %q", BeamlineGatewaySuffix),
			}
		}
		return nil
	}
	if ctx.conn.Server == "" {
		return &MissingConfigurationError{Parameter: "server", Context: "required on vxWorks outside beamline mode"}
	}
	return nil
}

func emitVxWorks(ctx bootContext) []string {
	var lines []string
	if ctx.params.Beamline {
		lines = append(lines,
			fmt.Sprintf(`ASPATH = "%s/%s"`, strings.TrimPrefix(ctx.conn.RootPath, BeamlinePathPrefix), ctx.params.IOCName),
			fmt.Sprintf(`BLGATEWAY = "%s"`, ctx.conn.Address),
			"< "+beamlineMountScript,
		)
	} else {
		server, addr := ctx.conn.Server, ctx.conn.Address
		lines = append(lines,
			fmt.Sprintf(`hostAdd "%s", "%s"`, server, addr),
			fmt.Sprintf(`nfsAuthUnixSet "%s", %d, %d, 0, 0`, server, ctx.params.UID, ctx.params.GID),
			fmt.Sprintf(`save_restoreSet_NFSHost "%s", "%s"`, server, addr),
			fmt.Sprintf(`set_savefile_path "%s"`, ctx.savePath()),
		)
	}

	// vxWorks has no path concatenation in the shell, so the request path
	// is built in a raw buffer.
	lines = append(lines, "requestfilePath = malloc(256)")
	if ctx.params.SubstituteBoot {
		lines = append(lines, fmt.Sprintf(`strcpy requestfilePath, "${INSTALL}/%s"`, requestSubdir))
	} else {
		lines = append(lines, fmt.Sprintf(`sprintf requestfilePath, "%%s/%s", top`, requestSubdir))
	}
	return append(lines, "set_requestfile_path requestfilePath")
}

func emitPosix(ctx bootContext) []string {
	var lines []string
	if ctx.params.Beamline {
		lines = append(lines, fmt.Sprintf(`directoryWait("%s", %d)`, ctx.savePath(), directoryWaitPeriod))
	}
	lines = append(lines, fmt.Sprintf(`set_savefile_path "%s"`, ctx.savePath()))

	root := `"${TOP}/"`
	if ctx.params.SubstituteBoot {
		root = `"${INSTALL}/"`
	}
	return append(lines, "set_requestfile_path "+root+iocwriter.QuoteIOCString(requestSubdir))
}

func globalSettings(params BootParams) []string {
	return []string{
		fmt.Sprintf(`save_restoreSet_status_prefix "%s"`, params.IOCName),
		fmt.Sprintf("save_restoreSet_Debug %d", params.Debug),
		fmt.Sprintf("save_restoreSet_NumSeqFiles %d", numSeqFiles),
		fmt.Sprintf("save_restoreSet_SeqPeriodInSeconds %d", seqPeriodSeconds),
		"save_restoreSet_DatedBackupFiles 1",
		"save_restoreSet_IncompleteSetsOk 1",
	}
}

func restoreFiles(params BootParams) []string {
	prefix := params.RequestPrefix
	lines := []string{fmt.Sprintf(`set_pass0_restoreFile "%s_0.sav"`, prefix)}
	if !params.SkipPass1 {
		lines = append(lines,
			fmt.Sprintf(`set_pass0_restoreFile "%s_1.sav"`, prefix),
			fmt.Sprintf(`set_pass1_restoreFile "%s_1.sav"`, prefix),
		)
	}
	return append(lines, fmt.Sprintf(`set_pass1_restoreFile "%s_2.sav"`, prefix))
}
