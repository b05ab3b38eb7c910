package cloudinit

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kdomanski/iso9660"
)

func testConfig() Config {
	return Config{
		Hostname:   "test-vm",
		InstanceID: "test-vm-0badf00d",
		User:       "ubuntu",
		Password:   "password",
		Packages:   []string{"net-tools"},
		Runcmd:     consoleCommands,
	}
}

func TestGenerateISO(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "full config",
			cfg:  testConfig(),
		},
		{
			name: "minimal config",
			cfg:  Config{Hostname: "minimal-vm", User: "root"},
		},
		{
			name:    "missing hostname",
			cfg:     Config{User: "root"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isoBytes, err := GenerateISO(tt.cfg)

			if tt.wantErr {
				if err == nil {
					t.Errorf("GenerateISO() expected error but got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("GenerateISO() unexpected error: %v", err)
			}

			if len(isoBytes) == 0 {
				t.Fatal("GenerateISO() returned empty byte slice")
			}

			verifyISOStructure(t, isoBytes, tt.cfg)
		})
	}
}

// verifyISOStructure reads the generated ISO and verifies its contents
func verifyISOStructure(t *testing.T, isoBytes []byte, cfg Config) {
	t.Helper()

	img, err := iso9660.OpenImage(bytes.NewReader(isoBytes))
	if err != nil {
		t.Fatalf("failed to open ISO image: %v", err)
	}

	volumeID, err := img.Label()
	if err != nil {
		t.Fatalf("failed to get volume label: %v", err)
	}
	if volumeID != "CIDATA" {
		t.Errorf("ISO volume identifier = %q, want %q", volumeID, "CIDATA")
	}

	rootDir, err := img.RootDir()
	if err != nil {
		t.Fatalf("failed to get root directory: %v", err)
	}

	children, err := rootDir.GetChildren()
	if err != nil {
		t.Fatalf("failed to get children: %v", err)
	}

	for _, filename := range []string{"user-data", "meta-data"} {
		found := false
		for _, child := range children {
			if child.Name() != filename {
				continue
			}
			found = true

			content, err := readISOFile(child)
			if err != nil {
				t.Errorf("failed to read %s: %v", filename, err)
				break
			}

			var expected string
			switch filename {
			case "user-data":
				expected, err = GenerateUserData(cfg)
			case "meta-data":
				expected, err = GenerateMetaData(cfg)
			}
			if err != nil {
				t.Errorf("failed to generate expected %s: %v", filename, err)
				break
			}

			if content != expected {
				t.Errorf("%s content mismatch:\ngot:\n%s\n\nwant:\n%s", filename, content, expected)
			}
			break
		}

		if !found {
			t.Errorf("required file %q not found in ISO", filename)
		}
	}

	if len(children) != 2 {
		t.Errorf("ISO contains %d files, want 2", len(children))
	}
}

// readISOFile reads the content of a file from the ISO image
func readISOFile(file *iso9660.File) (string, error) {
	content, err := io.ReadAll(file.Reader())
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func TestWriteISO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test-vm-seed.iso")

	if err := WriteISO(testConfig(), path); err != nil {
		t.Fatalf("WriteISO() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read seed: %v", err)
	}
	verifyISOStructure(t, data, testConfig())
}

func TestWriteISO_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "seed.iso")

	if err := WriteISO(testConfig(), path); err == nil {
		t.Error("WriteISO() expected error for missing directory")
	}
}
