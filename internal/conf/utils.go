// utils.go helper functions for config paths and file handling
package conf

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
)

const osWindows = "windows"

// GetDefaultConfigPaths returns a list of default configuration paths for the
// current operating system. If a config.yaml file is found in any of the
// paths, that path is returned as the only candidate.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	// Fetch the directory of the executable.
	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	// Fetch the user's home directory.
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "umi-no-me"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "umi-no-me"),
			"/etc/umi-no-me",
		}
	}

	// Check if config.yaml exists in any of the paths
	for _, path := range configPaths {
		configFile := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFile); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// FindConfigFile locates the configuration file.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "find-config-paths").
			Build()
	}

	for _, path := range configPaths {
		configFilePath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFilePath); err == nil {
			return configFilePath, nil
		}
	}

	return "", errors.Newf("config file not found").
		Category(errors.CategoryFileIO).
		Context("operation", "find-config-file").
		Build()
}

// GetBasePath expands and normalizes a directory path, creating the
// directory if it does not exist yet.
func GetBasePath(path string) string {
	expandedPath := os.ExpandEnv(path)
	basePath := filepath.Clean(expandedPath)

	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		if err := os.MkdirAll(basePath, 0o750); err != nil {
			slog.Warn("Failed to create directory", "path", basePath, "error", err)
		}
	}

	return basePath
}

// RunningInContainer detects whether the process runs inside a container.
func RunningInContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	data, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}
	content := string(data)
	return strings.Contains(content, "docker") || strings.Contains(content, "kubepods") || strings.Contains(content, "containerd")
}

// moveFile moves a file from src to dst, working across devices
func moveFile(src, dst string) error {
	// Rename works for moves within the same filesystem
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// If rename fails, fall back to copy and delete
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("error resolving source path: %w", err)
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("error resolving destination path: %w", err)
	}

	srcFile, err := os.Open(srcAbs) //nolint:gosec // G304: srcAbs is filepath.Abs resolved path
	if err != nil {
		return fmt.Errorf("error opening source file: %w", err)
	}
	defer func() {
		if err := srcFile.Close(); err != nil {
			slog.Warn("Failed to close source file", "error", err)
		}
	}()

	dstFile, err := os.Create(dstAbs) //nolint:gosec // G304: dstAbs is filepath.Abs resolved path
	if err != nil {
		return fmt.Errorf("error creating destination file: %w", err)
	}
	defer func() {
		if err := dstFile.Close(); err != nil {
			slog.Warn("Failed to close destination file", "error", err)
		}
	}()

	if _, err = io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("error copying file contents: %w", err)
	}

	if err := os.Remove(src); err != nil {
		// The copy succeeded, so tell the caller the move is only partial
		return fmt.Errorf("error removing source file after copy: %w", err)
	}

	return nil
}
