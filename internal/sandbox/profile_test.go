package sandbox

import "testing"

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	if p.Name != "default" {
		t.Fatalf("Name = %q, want default", p.Name)
	}
	if !p.DropCapabilities {
		t.Fatal("expected DropCapabilities true")
	}
}

func TestMinimalProfile(t *testing.T) {
	p := Minimal()
	if p.Name != "minimal" {
		t.Fatalf("Name = %q, want minimal", p.Name)
	}
	if !p.UseNamespaces {
		t.Fatal("expected UseNamespaces true")
	}
	if p.Network.Enabled {
		t.Fatal("expected network disabled")
	}
}

func TestEnvironmentDefaultBlocked(t *testing.T) {
	blocked := DefaultBlockedEnvVars()
	for _, want := range []string{"LD_PRELOAD", "NODE_OPTIONS", "BASH_ENV", "IFS"} {
		if _, ok := blocked[want]; !ok {
			t.Fatalf("expected %s in default blocked set", want)
		}
	}
}

func TestStandardEnvOverridesPath(t *testing.T) {
	env := StandardEnvironmentRules()
	if env.Set["PATH"] != SAFE_PATH {
		t.Fatalf("PATH = %q, want %q", env.Set["PATH"], SAFE_PATH)
	}
}

func TestMinimalEnvSetsSafePath(t *testing.T) {
	env := MinimalEnvironmentRules()
	if env.Set["PATH"] != SAFE_PATH {
		t.Fatalf("PATH = %q, want %q", env.Set["PATH"], SAFE_PATH)
	}
	if _, ok := env.Allowed["PATH"]; ok {
		t.Fatal("PATH must come from Set, not Allowed")
	}
}

func TestLocalhostOnlyBlocksGatewayPort(t *testing.T) {
	rules := LocalhostOnlyNetworkRules()
	if !containsPort(rules.BlockedPorts, GatewayPort) {
		t.Fatal("expected gateway port blocked")
	}
}

func TestEnabledNetworkBlocksGatewayPort(t *testing.T) {
	rules := EnabledNetworkRules()
	if !containsPort(rules.BlockedPorts, GatewayPort) {
		t.Fatal("expected gateway port blocked")
	}
}

// TestSandboxInvariants reproduces testable property 12: both minimal and
// standard environment presets set PATH to SAFE_PATH, both localhost-only
// and enabled network rules block the gateway port, and the default
// blocked env set carries the mandatory injection-prone variables.
func TestSandboxInvariants(t *testing.T) {
	if MinimalEnvironmentRules().Set["PATH"] != SAFE_PATH {
		t.Fatal("minimal() must set PATH to SAFE_PATH")
	}
	if StandardEnvironmentRules().Set["PATH"] != SAFE_PATH {
		t.Fatal("standard() must set PATH to SAFE_PATH")
	}
	if !containsPort(LocalhostOnlyNetworkRules().BlockedPorts, 18789) {
		t.Fatal("localhost_only() must block 18789")
	}
	if !containsPort(EnabledNetworkRules().BlockedPorts, 18789) {
		t.Fatal("enabled() must block 18789")
	}
	blocked := DefaultBlockedEnvVars()
	for _, v := range []string{"LD_PRELOAD", "NODE_OPTIONS", "BASH_ENV", "IFS"} {
		if _, ok := blocked[v]; !ok {
			t.Fatalf("default_blocked() must contain %s", v)
		}
	}
}

func TestMinimalSyscallAllowlistExcludesExit(t *testing.T) {
	rules := MinimalSyscallRules()
	if rules.Mode != SyscallAllowlist {
		t.Fatal("expected allowlist mode")
	}
	if _, ok := rules.Allowed["exit"]; !ok {
		t.Fatal("expected exit in minimal allowlist")
	}
	if _, ok := rules.Allowed["mount"]; ok {
		t.Fatal("mount must not be in the minimal allowlist")
	}
}

func TestStandardSyscallBlocklistIncludesDangerousSet(t *testing.T) {
	rules := StandardSyscallRules()
	if rules.Mode != SyscallBlocklist {
		t.Fatal("expected blocklist mode")
	}
	for _, s := range []string{"ptrace", "mount", "reboot"} {
		if _, ok := rules.Blocked[s]; !ok {
			t.Fatalf("expected %s blocked", s)
		}
	}
}

func containsPort(ports []int, want int) bool {
	for _, p := range ports {
		if p == want {
			return true
		}
	}
	return false
}
