package sandbox

// SAFE_PATH is the hard-coded PATH value every preset that does not fully
// inherit the parent environment must set, preventing PATH-manipulation
// attacks against the subprocess a sandbox backend spawns.
const SAFE_PATH = "/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin"

// GatewayPort is blocked from sandboxed network access whenever network is
// enabled at all, preventing sandbox-to-gateway privilege escalation.
const GatewayPort = 18789

// ResourceLimits bounds what a sandboxed subprocess may consume.
type ResourceLimits struct {
	MaxCPUSeconds  uint64
	MaxMemoryBytes uint64
	MaxProcesses   uint32
	MaxOpenFiles   uint64
	MaxOutputBytes uint64
}

// DefaultResourceLimits is the limit set used by the standard preset.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxCPUSeconds:  30,
		MaxMemoryBytes: 512 * 1024 * 1024,
		MaxProcesses:   10,
		MaxOpenFiles:   100,
		MaxOutputBytes: 1024 * 1024,
	}
}

// MinimalResourceLimits is a tighter bound for the minimal preset.
func MinimalResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxCPUSeconds:  5,
		MaxMemoryBytes: 128 * 1024 * 1024,
		MaxProcesses:   4,
		MaxOpenFiles:   32,
		MaxOutputBytes: 256 * 1024,
	}
}

// RelaxedResourceLimits loosens the bound for the relaxed preset.
func RelaxedResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxCPUSeconds:  300,
		MaxMemoryBytes: 2 * 1024 * 1024 * 1024,
		MaxProcesses:   64,
		MaxOpenFiles:   1024,
		MaxOutputBytes: 16 * 1024 * 1024,
	}
}

// FilesystemRules controls which paths a sandboxed subprocess may read,
// write, or execute, plus hard blocks that apply even under an allowed
// parent directory.
type FilesystemRules struct {
	ReadPaths      []string
	WritePaths     []string
	ExecPaths      []string
	BlockedPaths   []string
	AllowTmp       bool
	AllowWorkspace bool
}

// ReadOnlyFilesystemRules denies /tmp and workspace access and grants only
// the system paths needed to run a binary.
func ReadOnlyFilesystemRules() FilesystemRules {
	return FilesystemRules{
		ReadPaths:    []string{"/usr", "/lib", "/lib64", "/bin", "/sbin"},
		ExecPaths:    []string{"/usr/bin", "/bin"},
		BlockedPaths: []string{"/etc/shadow", "/etc/passwd"},
	}
}

// WorkspaceWriteFilesystemRules grants /tmp and workspace write access on
// top of the standard system read/exec paths.
func WorkspaceWriteFilesystemRules() FilesystemRules {
	return FilesystemRules{
		ReadPaths:      []string{"/usr", "/lib", "/lib64", "/bin", "/sbin", "/etc"},
		ExecPaths:      []string{"/usr/bin", "/bin", "/usr/local/bin"},
		BlockedPaths:   []string{"/etc/shadow"},
		AllowTmp:       true,
		AllowWorkspace: true,
	}
}

// NetworkRules controls outbound network access for a sandboxed subprocess.
type NetworkRules struct {
	Enabled       bool
	LocalhostOnly bool
	AllowedHosts  []string
	AllowedPorts  []int
	BlockedPorts  []int
}

// DisabledNetworkRules denies all network access.
func DisabledNetworkRules() NetworkRules {
	return NetworkRules{}
}

// LocalhostOnlyNetworkRules permits only loopback connections and always
// blocks the gateway port.
func LocalhostOnlyNetworkRules() NetworkRules {
	return NetworkRules{
		Enabled:       true,
		LocalhostOnly: true,
		AllowedHosts:  []string{"localhost", "127.0.0.1"},
		BlockedPorts:  []int{GatewayPort},
	}
}

// EnabledNetworkRules permits general network access while still blocking
// SSH, Telnet, SMTP, and the gateway port.
func EnabledNetworkRules() NetworkRules {
	return NetworkRules{
		Enabled:      true,
		BlockedPorts: []int{22, 23, 25, GatewayPort},
	}
}

// SyscallMode selects how SyscallRules.Allowed/Blocked are interpreted.
type SyscallMode int

const (
	SyscallDisabled SyscallMode = iota
	SyscallBlocklist
	SyscallAllowlist
)

// SyscallRules filters which syscalls a sandboxed subprocess may issue.
type SyscallRules struct {
	Mode    SyscallMode
	Allowed map[string]struct{}
	Blocked map[string]struct{}
}

func toSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

var minimalSyscallAllowlist = []string{
	"read", "write", "open", "close", "stat", "fstat", "lstat",
	"poll", "lseek", "mmap", "mprotect", "munmap", "brk",
	"ioctl", "access", "pipe", "select", "dup", "dup2",
	"nanosleep", "getpid", "exit", "exit_group",
}

// DangerousSyscalls is the mandatory blocklist every standard preset
// enforces; it is never removable by configuration.
var DangerousSyscalls = []string{
	"ptrace", "process_vm_readv", "process_vm_writev",
	"kexec_load", "kexec_file_load",
	"init_module", "finit_module", "delete_module",
	"reboot", "swapon", "swapoff",
	"mount", "umount", "umount2",
	"pivot_root", "chroot",
	"acct", "settimeofday", "adjtimex",
}

// MinimalSyscallRules allows only basic I/O and exit-family calls.
func MinimalSyscallRules() SyscallRules {
	return SyscallRules{Mode: SyscallAllowlist, Allowed: toSet(minimalSyscallAllowlist), Blocked: map[string]struct{}{}}
}

// StandardSyscallRules blocks the dangerous syscall set.
func StandardSyscallRules() SyscallRules {
	return SyscallRules{Mode: SyscallBlocklist, Allowed: map[string]struct{}{}, Blocked: toSet(DangerousSyscalls)}
}

// PermissiveSyscallRules disables syscall filtering entirely.
func PermissiveSyscallRules() SyscallRules {
	return SyscallRules{Mode: SyscallDisabled, Allowed: map[string]struct{}{}, Blocked: map[string]struct{}{}}
}

// DangerousEnvVars is the mandatory blocklist of variables that can be used
// to inject code into a subprocess via the dynamic linker, language runtime,
// or shell startup files.
var DangerousEnvVars = []string{
	"LD_PRELOAD", "LD_LIBRARY_PATH", "LD_AUDIT", "LD_DEBUG",
	"DYLD_INSERT_LIBRARIES", "DYLD_LIBRARY_PATH",
	"NODE_OPTIONS", "NODE_PATH",
	"PYTHONSTARTUP", "PYTHONPATH", "PYTHONHOME",
	"RUBYOPT", "RUBYLIB",
	"PERL5OPT", "PERL5LIB",
	"BASH_ENV", "ENV", "IFS",
	"GCONV_PATH", "SSLKEYLOGFILE",
}

// EnvironmentRules controls what environment a sandboxed subprocess sees.
type EnvironmentRules struct {
	Inherit bool
	Allowed map[string]struct{}
	Blocked map[string]struct{}
	Set     map[string]string
}

// DefaultBlockedEnvVars returns the mandatory env var blocklist as a set.
func DefaultBlockedEnvVars() map[string]struct{} {
	return toSet(DangerousEnvVars)
}

// MinimalEnvironmentRules does not inherit the parent environment, allows a
// small fixed set of variables, and hard-codes PATH to SAFE_PATH.
func MinimalEnvironmentRules() EnvironmentRules {
	return EnvironmentRules{
		Inherit: false,
		Allowed: toSet([]string{"HOME", "USER", "SHELL", "TERM", "LANG"}),
		Blocked: DefaultBlockedEnvVars(),
		Set:     map[string]string{"PATH": SAFE_PATH},
	}
}

// StandardEnvironmentRules inherits the parent environment but overrides
// PATH and enforces the dangerous-variable blocklist.
func StandardEnvironmentRules() EnvironmentRules {
	return EnvironmentRules{
		Inherit: true,
		Allowed: map[string]struct{}{},
		Blocked: DefaultBlockedEnvVars(),
		Set:     map[string]string{"PATH": SAFE_PATH},
	}
}

// PermissiveEnvironmentRules inherits everything except the mandatory
// blocklist, and does not override PATH.
func PermissiveEnvironmentRules() EnvironmentRules {
	return EnvironmentRules{
		Inherit: true,
		Allowed: map[string]struct{}{},
		Blocked: DefaultBlockedEnvVars(),
		Set:     map[string]string{},
	}
}

// Profile is the data record a sandbox backend consults when spawning a
// subprocess. It carries no behavior of its own; it is purely descriptive.
type Profile struct {
	Name             string
	Limits           ResourceLimits
	Filesystem       FilesystemRules
	Network          NetworkRules
	Syscalls         SyscallRules
	Environment      EnvironmentRules
	UseNamespaces    bool
	DropCapabilities bool
}

// DefaultProfile mirrors Profile's zero-config shape: default limits, no
// filesystem/network grants, syscalls and environment wide open apart from
// the mandatory blocklists, capabilities dropped.
func DefaultProfile() Profile {
	return Profile{
		Name:             "default",
		Limits:           DefaultResourceLimits(),
		DropCapabilities: true,
	}
}

// Minimal returns the most restrictive preset: tiny resource limits,
// read-only filesystem with no /tmp or workspace, network disabled, a
// syscall allowlist limited to basic I/O and exit, a non-inherited
// environment with SAFE_PATH, namespaces and capability dropping on.
func Minimal() Profile {
	return Profile{
		Name:             "minimal",
		Limits:           MinimalResourceLimits(),
		Filesystem:       ReadOnlyFilesystemRules(),
		Network:          DisabledNetworkRules(),
		Syscalls:         MinimalSyscallRules(),
		Environment:      MinimalEnvironmentRules(),
		UseNamespaces:    true,
		DropCapabilities: true,
	}
}

// Standard returns the default preset for ordinary agent tool calls:
// default limits, workspace and /tmp accessible, localhost-only network
// with the gateway port blocked, the dangerous-syscall blocklist enforced,
// environment inherited but PATH overridden and dangerous variables
// blocked.
func Standard() Profile {
	return Profile{
		Name:             "standard",
		Limits:           DefaultResourceLimits(),
		Filesystem:       WorkspaceWriteFilesystemRules(),
		Network:          LocalhostOnlyNetworkRules(),
		Syscalls:         StandardSyscallRules(),
		Environment:      StandardEnvironmentRules(),
		UseNamespaces:    false,
		DropCapabilities: true,
	}
}

// Relaxed returns the loosest preset for trusted operations: higher
// limits, workspace-write filesystem, network enabled (SSH/Telnet/SMTP and
// the gateway port still blocked), syscall filtering disabled, and a
// permissive inherited environment.
func Relaxed() Profile {
	return Profile{
		Name:             "relaxed",
		Limits:           RelaxedResourceLimits(),
		Filesystem:       WorkspaceWriteFilesystemRules(),
		Network:          EnabledNetworkRules(),
		Syscalls:         PermissiveSyscallRules(),
		Environment:      PermissiveEnvironmentRules(),
		UseNamespaces:    false,
		DropCapabilities: false,
	}
}
