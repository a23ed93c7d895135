package system

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

const (
	DirMode    fs.FileMode = 0755
	ConfigMode fs.FileMode = 0644
	SecretMode fs.FileMode = 0400
)

// Owner is a numeric uid/gid pair.
type Owner struct {
	UID int
	GID int
}

// LookupOwner resolves a user and group name into numeric ids.
func LookupOwner(userName, groupName string) (*Owner, error) {
	u, err := user.Lookup(userName)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}
	g, err := user.LookupGroup(groupName)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup group: %w", err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return nil, fmt.Errorf("invalid uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return nil, fmt.Errorf("invalid gid %q: %w", g.Gid, err)
	}
	return &Owner{UID: uid, GID: gid}, nil
}

// Files writes generated artifacts. A nil owner leaves ownership untouched.
type Files struct {
	// Service owns directories and rendered configuration files.
	Service *Owner
	// Secret owns key material and credential files.
	Secret *Owner
}

// NewFiles resolves the service account and the root:configGroup owner used
// for secrets.
func NewFiles(serviceUser, serviceGroup, configGroup string) (*Files, error) {
	service, err := LookupOwner(serviceUser, serviceGroup)
	if err != nil {
		return nil, err
	}
	secret, err := LookupOwner("root", configGroup)
	if err != nil {
		return nil, err
	}
	return &Files{Service: service, Secret: secret}, nil
}

func (f *Files) MkdirAll(dir string) error {
	err := os.MkdirAll(dir, DirMode)
	if err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	err = os.Chmod(dir, DirMode)
	if err != nil {
		return fmt.Errorf("failed to chmod directory: %w", err)
	}
	return chown(dir, f.Service)
}

func (f *Files) WriteConfig(path string, data []byte) error {
	return writeFile(path, data, ConfigMode, f.Service)
}

func (f *Files) WriteSecret(path string, data []byte) error {
	return writeFile(path, data, SecretMode, f.Secret)
}

// Protect tightens an existing secret file. Missing files are skipped.
func (f *Files) Protect(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	err = os.Chmod(path, SecretMode)
	if err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	return chown(path, f.Secret)
}

// Remove deletes path, ignoring a missing file.
func (f *Files) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the names of regular files in dir.
func (f *Files) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func writeFile(path string, data []byte, perm fs.FileMode, owner *Owner) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	err = os.Chmod(tmpName, perm)
	if err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	err = chown(tmpName, owner)
	if err != nil {
		return err
	}
	err = os.Rename(tmpName, path)
	if err != nil {
		return fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return nil
}

func chown(path string, owner *Owner) error {
	if owner == nil {
		return nil
	}
	err := os.Chown(path, owner.UID, owner.GID)
	if err != nil {
		return fmt.Errorf("failed to chown %s: %w", path, err)
	}
	return nil
}
