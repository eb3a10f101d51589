package safety

import "testing"

func TestSafetyPolicyShellInjection(t *testing.T) {
	p := DefaultSafetyPolicy()
	matches := p.Check("; rm -rf /")
	found := false
	for _, m := range matches {
		if m.Rule == "shell_injection" && m.Action == PolicyBlock {
			found = true
		}
	}
	if !found {
		t.Fatal("expected shell_injection Block match")
	}
}

func TestSafetyPolicyPathTraversal(t *testing.T) {
	p := DefaultSafetyPolicy()
	matches := p.Check("../../etc/passwd")
	found := false
	for _, m := range matches {
		if m.Rule == "path_traversal" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected path_traversal match")
	}
}

func TestSafetyPolicyClean(t *testing.T) {
	p := DefaultSafetyPolicy()
	if matches := p.Check("just a normal sentence"); len(matches) != 0 {
		t.Fatalf("expected no matches, got %+v", matches)
	}
}
