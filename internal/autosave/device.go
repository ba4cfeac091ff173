package autosave

import (
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/roach88/autosave/internal/iocwriter"
	"github.com/roach88/autosave/internal/record"
)

// Default vxWorks NFS identity of the autosave user (epics_user, group dcs).
const (
	DefaultUID = 37134
	DefaultGID = 500
)

// Templates instantiated once per device.
const (
	fileTemplate   = "dlssrfile.template"
	statusTemplate = "dlssrstatus.template"
)

// Device adds autosave/restore support to one IOC.
//
// A Device owns the field registry for its IOC, hooks into database and
// Makefile generation, and contributes the boot commands that configure
// the save/restore service.
type Device struct {
	iocName   string
	name      string
	debug     int
	skipPass1 bool
	beamline  bool
	uid       int
	gid       int

	server     *Server
	serverInit *Connection
	registry   *FieldRegistry
	rules      *BuildRuleEmitter
	boot       *BootSequenceGenerator
	logger     *zap.Logger
}

// Option configures a Device.
type Option func(*Device)

// WithDebug sets the save_restore debug level.
func WithDebug(level int) Option {
	return func(d *Device) { d.debug = level }
}

// WithSkipPass1 stops file 1 from being restored.
func WithSkipPass1(skip bool) Option {
	return func(d *Device) { d.skipPass1 = skip }
}

// WithBeamline enables beamline mode: the save directory is waited for
// (linux) or mounted through the beamline gateway (vxWorks).
func WithBeamline(bl bool) Option {
	return func(d *Device) { d.beamline = bl }
}

// WithVxIdentity sets the vxWorks NFS uid and gid.
func WithVxIdentity(uid, gid int) Option {
	return func(d *Device) {
		d.uid = uid
		d.gid = gid
	}
}

// WithName sets the object name used by the status template.
func WithName(name string) Option {
	return func(d *Device) { d.name = name }
}

// WithServer makes the device read connection parameters from s instead
// of DefaultServer.
func WithServer(s *Server) Option {
	return func(d *Device) {
		if s != nil {
			d.server = s
		}
	}
}

// WithServerParams sets the connection parameters on the device's server
// holder when the device is constructed. Every device sharing that holder
// sees the change.
func WithServerParams(server, address, rootPath string) Option {
	return func(d *Device) {
		d.serverInit = &Connection{Server: server, Address: address, RootPath: rootPath}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates the autosave device for iocName.
func New(iocName string, opts ...Option) *Device {
	d := &Device{
		iocName:  iocName,
		uid:      DefaultUID,
		gid:      DefaultGID,
		server:   DefaultServer,
		registry: NewFieldRegistry(),
		boot:     NewBootSequenceGenerator(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.rules = NewBuildRuleEmitter(d.registry)
	if d.serverInit != nil {
		d.server.Set(d.serverInit.Server, d.serverInit.Address, d.serverInit.RootPath)
	}
	d.logger = d.logger.With(zap.String("component", "autosave"), zap.String("ioc", iocName))
	return d
}

// IOCName returns the IOC the device belongs to.
func (d *Device) IOCName() string { return d.iocName }

// Registry returns the device's field registry.
func (d *Device) Registry() *FieldRegistry { return d.registry }

// AutosavePass marks fields of rec to be autosaved in pass.
func (d *Device) AutosavePass(rec Record, pass Pass, fields ...string) error {
	if err := d.registry.Mark(rec, pass, fields...); err != nil {
		d.logger.Debug("autosave mark rejected", zap.String("record", rec.RecordName()), zap.Error(err))
		return err
	}
	d.logger.Debug("autosave marked",
		zap.String("record", rec.RecordName()),
		zap.Int("pass", int(pass)),
		zap.Strings("fields", fields))
	return nil
}

// Autosave marks fields of rec for pass 0.
func (d *Device) Autosave(rec Record, fields ...string) error {
	return d.AutosavePass(rec, Pass0, fields...)
}

// Autosave0 marks fields of rec for pass 0.
func (d *Device) Autosave0(rec Record, fields ...string) error {
	return d.AutosavePass(rec, Pass0, fields...)
}

// Autosave1 marks fields of rec for pass 1.
func (d *Device) Autosave1(rec Record, fields ...string) error {
	return d.AutosavePass(rec, Pass1, fields...)
}

// Autosave2 marks fields of rec for pass 2.
func (d *Device) Autosave2(rec Record, fields ...string) error {
	return d.AutosavePass(rec, Pass2, fields...)
}

// PrintMetadata writes the autosave annotations of rec. It implements
// record.MetadataHook.
func (d *Device) PrintMetadata(w io.Writer, rec *record.Record) error {
	return d.registry.WriteMetadata(w, rec.Name)
}

// DbMakefileHook emits the request file rule on the first database file
// event. It implements iocwriter.DbFileListener.
func (d *Device) DbMakefileHook(mk iocwriter.RuleSink, ev iocwriter.DbFileEvent) {
	if d.rules.DbFileAdded(mk, ev) {
		d.logger.Debug("request file rule emitted",
			zap.String("db", ev.DbFilename),
			zap.String("expanded", ev.ExpandedFilename))
	}
}

// RequestPrefix returns the request file prefix, bound by the first
// database file event.
func (d *Device) RequestPrefix() (string, bool) {
	return d.rules.Prefix()
}

// BootParams returns the generation inputs for target.
func (d *Device) BootParams(t iocwriter.Target) BootParams {
	prefix, _ := d.rules.Prefix()
	return BootParams{
		IOCName:        d.iocName,
		RequestPrefix:  prefix,
		Debug:          d.debug,
		SkipPass1:      d.skipPass1,
		Beamline:       d.beamline,
		SubstituteBoot: t.SubstituteBoot,
		UID:            d.uid,
		GID:            d.gid,
	}
}

// Initialise returns the boot commands that configure save/restore before
// iocInit. Connection parameters are read now, not at construction.
func (d *Device) Initialise(t iocwriter.Target) ([]string, error) {
	platform, err := PlatformFromArch(t.Arch)
	if err != nil {
		return nil, err
	}
	return d.boot.Generate(platform, d.server.Params(), d.BootParams(t))
}

// PostIocInitialise returns the monitor set commands run after iocInit.
func (d *Device) PostIocInitialise() ([]string, error) {
	prefix, _ := d.rules.Prefix()
	return d.boot.PostInit(prefix)
}

// Libraries implements iocwriter.SupportProvider.
func (d *Device) Libraries() []string {
	if d.beamline {
		return []string{"autosave", "utility"}
	}
	return []string{"autosave"}
}

// DbdFiles implements iocwriter.SupportProvider.
func (d *Device) DbdFiles() []string {
	if d.beamline {
		return []string{"asSupport", "utility"}
	}
	return []string{"asSupport"}
}

// Substitutions returns the save/restore status and file template rows.
// A device without an IOC name contributes none.
func (d *Device) Substitutions() []iocwriter.Substitution {
	if d.iocName == "" {
		return nil
	}
	rows := make([]iocwriter.Substitution, 0, NumPasses+1)
	for n := range NumPasses {
		rows = append(rows, iocwriter.Substitution{
			Template: fileTemplate,
			Args: []iocwriter.Arg{
				{Name: "device", Value: d.iocName},
				{Name: "file", Value: strconv.Itoa(n)},
			},
		})
	}
	name := d.name
	if name == "" {
		name = d.iocName
	}
	return append(rows, iocwriter.Substitution{
		Template: statusTemplate,
		Args: []iocwriter.Arg{
			{Name: "device", Value: d.iocName},
			{Name: "name", Value: name},
		},
	})
}
