package validation

import (
	"os"
	"path/filepath"
)

// PathHandler resolves the on-disk locations ranobe writes to.
type PathHandler struct {
	validator *FilePathValidator
}

func NewSecurePathHandler() *PathHandler {
	return &PathHandler{validator: NewFilePathValidator()}
}

func NewPermissivePathHandler() *PathHandler {
	return &PathHandler{validator: NewPermissiveFilePathValidator()}
}

func defaultPath(parts ...string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{home}, parts...)...), nil
}

// DBPath returns the validated bbolt file, ~/.ranobe/ranobe.db by default.
func (ph *PathHandler) DBPath(userPath string) (string, error) {
	if userPath == "" {
		p, err := defaultPath(".ranobe", "ranobe.db")
		if err != nil {
			return "", err
		}
		userPath = p
	}
	return ph.validator.ValidateFile(userPath)
}

// ConfigPath returns the validated config file, ~/.config/ranobe/config.toml by default.
func (ph *PathHandler) ConfigPath(userPath string) (string, error) {
	if userPath == "" {
		p, err := defaultPath(".config", "ranobe", "config.toml")
		if err != nil {
			return "", err
		}
		userPath = p
	}
	return ph.validator.ValidateFile(userPath)
}

// IndexPath returns the validated bleve directory, ~/.ranobe/index.bleve by default.
func (ph *PathHandler) IndexPath(userPath string) (string, error) {
	if userPath == "" {
		p, err := defaultPath(".ranobe", "index.bleve")
		if err != nil {
			return "", err
		}
		userPath = p
	}
	return ph.validator.ValidateDirectory(userPath, false)
}

// LogPath returns the validated log file, ~/.ranobe/ranobe.log by default.
func (ph *PathHandler) LogPath(userPath string) (string, error) {
	if userPath == "" {
		p, err := defaultPath(".ranobe", "ranobe.log")
		if err != nil {
			return "", err
		}
		userPath = p
	}
	return ph.validator.ValidateFile(userPath)
}

// EnsureDirectory validates path and creates it when missing.
func (ph *PathHandler) EnsureDirectory(path string) (string, error) {
	return ph.validator.ValidateDirectory(path, true)
}
