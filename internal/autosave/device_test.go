package autosave

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autosave/internal/iocwriter"
	"github.com/roach88/autosave/internal/record"
)

func newRecord(t *testing.T, recordType, name string) *record.Record {
	t.Helper()
	r, err := record.New(record.DefaultSchema(), recordType, name)
	require.NoError(t, err)
	return r
}

func TestDevice_MarkWrappers(t *testing.T) {
	d := New("TS1", WithServer(NewServer()))
	ao := newRecord(t, "ao", "TS1:SP")

	require.NoError(t, d.Autosave(ao, "VAL"))
	require.NoError(t, d.Autosave1(ao, "DRVH", "DRVL"))
	require.NoError(t, d.Autosave2(ao, "DESC"))
	require.NoError(t, d.Autosave0(ao, "VAL"))

	var buf bytes.Buffer
	require.NoError(t, d.PrintMetadata(&buf, ao))
	assert.Equal(t,
		"#% autosave 0 VAL\n#% autosave 1 DRVH\n#% autosave 1 DRVL\n#% autosave 2 DESC\n",
		buf.String())
}

func TestDevice_RejectsUnknownField(t *testing.T) {
	d := New("TS1", WithServer(NewServer()))
	bi := newRecord(t, "bi", "TS1:STATUS")

	err := d.Autosave(bi, "DRVH")

	assert.True(t, IsInvalidField(err))
	assert.False(t, d.Registry().AnyMarksExist())
}

func TestDevice_Substitutions(t *testing.T) {
	d := New("TS1", WithServer(NewServer()))

	rows := d.Substitutions()

	require.Len(t, rows, 4)
	for n, row := range rows[:3] {
		assert.Equal(t, "dlssrfile.template", row.Template)
		assert.Equal(t, []iocwriter.Arg{
			{Name: "device", Value: "TS1"},
			{Name: "file", Value: string(rune('0' + n))},
		}, row.Args)
	}
	assert.Equal(t, iocwriter.Substitution{
		Template: "dlssrstatus.template",
		Args:     []iocwriter.Arg{{Name: "device", Value: "TS1"}, {Name: "name", Value: "TS1"}},
	}, rows[3])
}

func TestDevice_SubstitutionsName(t *testing.T) {
	d := New("TS1", WithServer(NewServer()), WithName("AUTOSAVE"))

	rows := d.Substitutions()
	assert.Equal(t, "AUTOSAVE", rows[3].Args[1].Value)

	assert.Nil(t, New("", WithServer(NewServer())).Substitutions())
}

func TestDevice_Support(t *testing.T) {
	plain := New("TS1", WithServer(NewServer()))
	assert.Equal(t, []string{"autosave"}, plain.Libraries())
	assert.Equal(t, []string{"asSupport"}, plain.DbdFiles())

	bl := New("TS1", WithServer(NewServer()), WithBeamline(true))
	assert.Equal(t, []string{"autosave", "utility"}, bl.Libraries())
	assert.Equal(t, []string{"asSupport", "utility"}, bl.DbdFiles())
}

func TestDevice_ServerReadLazily(t *testing.T) {
	server := NewServer()
	d := New("TS1", WithServer(server))
	d.DbMakefileHook(&iocwriter.Makefile{}, DbFileEvent{IOCName: "TS1", ExpandedFilename: "TS1_expanded.substitutions"})
	target := iocwriter.Target{Arch: "linux-x86_64"}

	_, err := d.Initialise(target)
	require.True(t, IsMissingConfiguration(err), "root path is not set yet")

	server.Set("", "", "/data/ioc")
	lines, err := d.Initialise(target)
	require.NoError(t, err)
	assert.Contains(t, lines, `set_savefile_path "/data/ioc/TS1"`)
}

func TestDevice_SharedServerParams(t *testing.T) {
	server := NewServer()
	first := New("TS1", WithServer(server))
	New("TS2", WithServer(server), WithServerParams("srv", "10.0.0.1", "/autosave"))

	assert.True(t, server.IsSet())
	assert.Equal(t, Connection{Server: "srv", Address: "10.0.0.1", RootPath: "/autosave"}, first.server.Params())
}

func TestDevice_DefaultServer(t *testing.T) {
	saved := DefaultServer.Params()
	wasSet := DefaultServer.IsSet()
	t.Cleanup(func() {
		if wasSet {
			DefaultServer.Set(saved.Server, saved.Address, saved.RootPath)
		} else {
			*DefaultServer = Server{}
		}
	})

	d := New("TS1")
	SetAutosaveServer("", "", "/global")

	assert.Equal(t, "/global", d.server.Params().RootPath)
}

func TestDevice_BootParams(t *testing.T) {
	d := New("TS1",
		WithServer(NewServer()),
		WithDebug(3),
		WithSkipPass1(true),
		WithVxIdentity(1000, 100))

	params := d.BootParams(iocwriter.Target{Arch: "vxWorks-ppc604", SubstituteBoot: true})
	assert.Equal(t, BootParams{
		IOCName:        "TS1",
		Debug:          3,
		SkipPass1:      true,
		SubstituteBoot: true,
		UID:            1000,
		GID:            100,
	}, params)

	_, ok := d.RequestPrefix()
	assert.False(t, ok)
}

func TestDevice_InitialiseRequiresDbEvent(t *testing.T) {
	server := NewServer()
	server.Set("", "", "/data/ioc")
	d := New("TS1", WithServer(server))

	_, err := d.Initialise(iocwriter.Target{Arch: "linux-x86_64"})
	assert.True(t, IsMissingConfiguration(err))

	_, err = d.PostIocInitialise()
	assert.True(t, IsMissingConfiguration(err))
}

func TestDevice_InitialiseUnknownArch(t *testing.T) {
	server := NewServer()
	server.Set("", "", "/data/ioc")
	d := New("TS1", WithServer(server))

	_, err := d.Initialise(iocwriter.Target{Arch: "RTEMS-mvme5500"})
	assert.Error(t, err)
}
