package fsstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/crmarques/rossync/debugctx"
	"github.com/crmarques/rossync/faults"
	"github.com/crmarques/rossync/internal/providers/shared/fsutil"
	"github.com/crmarques/rossync/repository"
	"github.com/crmarques/rossync/resource"
)

var _ repository.LocalStore = (*LocalObjectStore)(nil)

const fileExtension = ".json"

type LocalObjectStore struct {
	root string
	now  func() time.Time
}

func NewLocalObjectStore(root string) *LocalObjectStore {
	return &LocalObjectStore{
		root: filepath.Clean(root),
		now:  time.Now,
	}
}

func (s *LocalObjectStore) Root() string {
	return s.root
}

func (s *LocalObjectStore) SaveObject(
	ctx context.Context,
	objectType resource.ObjectType,
	id int64,
	name string,
	data resource.Payload,
	remoteModifiedAt *time.Time,
) (string, error) {
	if !objectType.Valid() {
		return "", validationError(fmt.Sprintf("unsupported object type %q", objectType), nil)
	}

	normalized, err := resource.NormalizePayload(data)
	if err != nil {
		return "", err
	}

	targetPath, err := s.objectFilePath(objectType, id, name)
	if err != nil {
		return "", err
	}

	object := resource.LocalObject{
		Meta: resource.Meta{
			PulledAt:         s.now().UTC(),
			RemoteModifiedAt: remoteModifiedAt,
			ObjectType:       objectType,
			ObjectID:         id,
		},
		Data: normalized,
	}
	encoded, err := encodeObject(object)
	if err != nil {
		return "", internalError("failed to encode object snapshot", err)
	}

	if err := fsutil.WriteFileAtomic(targetPath, encoded, 0o644); err != nil {
		return "", internalError(fmt.Sprintf("failed to write %s", targetPath), err)
	}

	debugctx.Printf(ctx, "saved %s %d to %s", objectType, id, targetPath)
	return targetPath, nil
}

func (s *LocalObjectStore) LoadObject(_ context.Context, path string) (resource.LocalObject, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return resource.LocalObject{}, notFoundError(fmt.Sprintf("object file %q not found", path))
		}
		return resource.LocalObject{}, internalError("failed to read object file", err)
	}
	return decodeObject(path, content)
}

func (s *LocalObjectStore) ListLocalObjects(_ context.Context, objectType resource.ObjectType) ([]string, error) {
	if !objectType.Valid() {
		return nil, validationError(fmt.Sprintf("unsupported object type %q", objectType), nil)
	}

	folder := filepath.Join(s.root, objectType.Folder())
	entries, err := os.ReadDir(folder)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, internalError(fmt.Sprintf("failed to list %s", folder), err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExtension) {
			continue
		}
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(folder, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *LocalObjectStore) FindObjectPath(ctx context.Context, objectType resource.ObjectType, id int64) (string, error) {
	paths, err := s.ListLocalObjects(ctx, objectType)
	if err != nil {
		return "", err
	}

	suffix := "_" + strconv.FormatInt(id, 10) + fileExtension
	for _, path := range paths {
		if strings.HasSuffix(filepath.Base(path), suffix) {
			return path, nil
		}
	}
	return "", nil
}

// FileName renders the snapshot file name for an object.
func FileName(name string, id int64) string {
	return SanitizeName(name) + "_" + strconv.FormatInt(id, 10) + fileExtension
}

// SanitizeName replaces every rune outside [A-Za-z0-9 _-] with '_'.
func SanitizeName(name string) string {
	var builder strings.Builder
	builder.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == ' ', r == '_', r == '-':
			builder.WriteRune(r)
		default:
			builder.WriteByte('_')
		}
	}
	return builder.String()
}

func (s *LocalObjectStore) objectFilePath(objectType resource.ObjectType, id int64, name string) (string, error) {
	filePath := filepath.Join(s.root, objectType.Folder(), FileName(name, id))
	if !fsutil.IsPathUnderRoot(s.root, filePath) {
		return "", validationError("object path escapes workspace root", nil)
	}
	return filePath, nil
}

func encodeObject(object resource.LocalObject) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(object); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

type storedObject struct {
	Meta *resource.Meta   `json:"meta"`
	Data *json.RawMessage `json:"data"`
}

func decodeObject(path string, content []byte) (resource.LocalObject, error) {
	var stored storedObject
	if err := json.Unmarshal(content, &stored); err != nil {
		return resource.LocalObject{}, parseError(fmt.Sprintf("object file %q is not valid JSON", path), err)
	}
	if stored.Meta == nil || stored.Data == nil {
		return resource.LocalObject{}, parseError(fmt.Sprintf("object file %q must contain meta and data", path), nil)
	}
	if !stored.Meta.ObjectType.Valid() {
		return resource.LocalObject{}, parseError(
			fmt.Sprintf("object file %q has unknown object_type %q", path, stored.Meta.ObjectType),
			nil,
		)
	}

	data, err := resource.DecodePayload(*stored.Data)
	if err != nil {
		return resource.LocalObject{}, parseError(fmt.Sprintf("object file %q has invalid data", path), err)
	}

	return resource.LocalObject{Meta: *stored.Meta, Data: data}, nil
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func notFoundError(message string) error {
	return faults.NewTypedError(faults.NotFoundError, message, nil)
}

func parseError(message string, cause error) error {
	return faults.NewTypedError(faults.ParseError, message, cause)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
