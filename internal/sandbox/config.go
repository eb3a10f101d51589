package sandbox

// Mode controls which agent turns run inside a Docker sandbox.
type Mode string

const (
	ModeOff     Mode = "off"
	ModeNonMain Mode = "non-main"
	ModeAll     Mode = "all"
)

// WorkspaceAccess controls how the workspace directory is bind-mounted into
// the sandbox container.
type WorkspaceAccess string

const (
	AccessNone WorkspaceAccess = "none"
	AccessRO   WorkspaceAccess = "ro"
	AccessRW   WorkspaceAccess = "rw"
)

// Scope controls how sandbox containers are shared across sessions/agents.
type Scope string

const (
	ScopeSession Scope = "session"
	ScopeAgent   Scope = "agent"
	ScopeShared  Scope = "shared"
)

// Config is the Docker-backed sandbox executor's runtime configuration, as
// distinct from Profile: Config says how to run the container, Profile says
// what the subprocess inside it may do.
type Config struct {
	Mode            Mode
	Image           string
	WorkspaceAccess WorkspaceAccess
	Scope           Scope
	MemoryMB        int
	CPUs            float64
	TimeoutSec      int
	NetworkEnabled  bool
	ReadOnlyRoot    bool
	SetupCommand    string
	Env             map[string]string
}

// DefaultConfig returns the out-of-the-box Docker sandbox configuration.
func DefaultConfig() Config {
	return Config{
		Mode:            ModeOff,
		Image:           "goclaw-sandbox:bookworm-slim",
		WorkspaceAccess: AccessRW,
		Scope:           ScopeSession,
		MemoryMB:        512,
		CPUs:            1.0,
		TimeoutSec:      300,
		NetworkEnabled:  false,
		ReadOnlyRoot:    true,
	}
}

// ProfileForMode returns the sandbox profile preset that best matches this
// config's declared access level, for backends that want a data-driven
// description of the constraints to enforce inside the container.
func (c Config) ProfileForMode() Profile {
	switch {
	case c.WorkspaceAccess == AccessNone && !c.NetworkEnabled:
		return Minimal()
	case c.NetworkEnabled:
		return Relaxed()
	default:
		return Standard()
	}
}
