package cloudinit

import (
	"bytes"
	"fmt"
	"os"

	"github.com/kdomanski/iso9660"
)

// GenerateISO creates a cloud-init NoCloud ISO image.
//
// The generated ISO contains two files in the root directory:
//   - user-data: Cloud-config YAML with hostname, account, packages, runcmd
//   - meta-data: Instance metadata (instance-id, local-hostname)
//
// The ISO volume label is set to "CIDATA" as required by the cloud-init NoCloud datasource.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
func GenerateISO(cfg Config) ([]byte, error) {
	userData, err := GenerateUserData(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate user-data: %w", err)
	}

	metaData, err := GenerateMetaData(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate meta-data: %w", err)
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create ISO writer: %w", err)
	}
	defer func() {
		_ = writer.Cleanup()
	}()

	if err := writer.AddFile(bytes.NewReader([]byte(userData)), "user-data"); err != nil {
		return nil, fmt.Errorf("failed to add user-data: %w", err)
	}

	if err := writer.AddFile(bytes.NewReader([]byte(metaData)), "meta-data"); err != nil {
		return nil, fmt.Errorf("failed to add meta-data: %w", err)
	}

	// The volume identifier must be uppercase CIDATA for NoCloud.
	var buf bytes.Buffer
	if err := writer.WriteTo(&buf, "CIDATA"); err != nil {
		return nil, fmt.Errorf("failed to write ISO image: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteISO generates the seed and writes it to path.
func WriteISO(cfg Config, path string) error {
	data, err := GenerateISO(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write seed %s: %w", path, err)
	}
	return nil
}
