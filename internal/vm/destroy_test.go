package vm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDeletePlan_Run(t *testing.T) {
	mock := newMockBackend()
	mock.requestFunc = func(op, name string) error {
		if op == "destroy" {
			return errors.New("domain is not running")
		}
		return nil
	}
	s := NewSession(mock, "dev-vm")

	base := t.TempDir()
	dir := filepath.Join(base, "dev-vm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dev-vm.qcow2"), []byte("disk"), 0o644); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(base, "keep-me")
	if err := os.MkdirAll(other, 0o755); err != nil {
		t.Fatal(err)
	}

	plan, err := s.DeletePlan(base)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	out := NewExecutor(&mockStreams{}, &mockFetcher{}).Run(context.Background(), plan, nil)

	if !out.OK {
		t.Fatalf("expected success despite destroy failure, got %+v", out)
	}
	if out.Message != "VM dev-vm deleted." {
		t.Errorf("unexpected message %q", out.Message)
	}
	if strings.Join(mock.calls, ",") != "destroy dev-vm,undefine dev-vm" {
		t.Errorf("expected destroy then undefine, got %v", mock.calls)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected VM dir removed, stat err = %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("expected sibling dir kept: %v", err)
	}
}

func TestDeletePlan_Invalid(t *testing.T) {
	if _, err := NewSession(newMockBackend(), "").DeletePlan(t.TempDir()); err == nil {
		t.Error("expected error for empty target")
	}
	if _, err := NewSession(newMockBackend(), "../etc").DeletePlan(t.TempDir()); err == nil {
		t.Error("expected error for path-like target")
	}
	if _, err := NewSession(newMockBackend(), "dev-vm").DeletePlan(""); err == nil {
		t.Error("expected error for missing VM directory")
	}
}
