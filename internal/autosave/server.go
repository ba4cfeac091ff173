package autosave

// Connection holds the autosave server parameters. An empty string means
// the parameter was never set.
type Connection struct {
	// Server is the NFS server host name (vxWorks, non-beamline only).
	Server string `json:"server,omitempty"`

	// Address is the NFS server address, or the beamline gateway address
	// in beamline mode (vxWorks only).
	Address string `json:"address,omitempty"`

	// RootPath is the directory save files live under; the IOC name is
	// appended to it.
	RootPath string `json:"root_path,omitempty"`
}

// Server is the holder for connection parameters shared by every device
// that references it. Exactly one Set per process is expected; the last
// call wins. Devices read it lazily, at generation time.
type Server struct {
	params Connection
	set    bool
}

// NewServer returns an unset holder.
func NewServer() *Server {
	return &Server{}
}

// Set replaces the connection parameters.
func (s *Server) Set(server, address, rootPath string) {
	s.params = Connection{Server: server, Address: address, RootPath: rootPath}
	s.set = true
}

// Params returns the current parameters. Unset parameters are empty.
func (s *Server) Params() Connection {
	return s.params
}

// IsSet reports whether Set has been called.
func (s *Server) IsSet() bool {
	return s.set
}

// DefaultServer is the process-wide holder used by devices constructed
// without WithServer.
var DefaultServer = NewServer()

// SetAutosaveServer sets the process-wide connection parameters.
func SetAutosaveServer(server, address, rootPath string) {
	DefaultServer.Set(server, address, rootPath)
}
