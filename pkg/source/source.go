// Package source loads person records from the backend data service.
//
// Two backends exist: [File] reads a JSON record file through pkg/io and
// [Mongo] queries a MongoDB collection. [Open] picks one from [Options].
package source

import (
	"context"
	"fmt"

	"github.com/matzehuels/kinview/pkg/errors"
	"github.com/matzehuels/kinview/pkg/family"
	kio "github.com/matzehuels/kinview/pkg/io"
)

// Source yields a complete record set.
type Source interface {
	Load(ctx context.Context) ([]family.PersonRecord, error)
	Close(ctx context.Context) error
}

// Options selects and configures a backend.
type Options struct {
	// Backend is "file" or "mongo". Empty means "file".
	Backend string

	Path string

	MongoURI   string
	Database   string
	Collection string
	// Filter restricts the Mongo query, e.g. to one family tree.
	Filter map[string]any
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Source, error) {
	switch opts.Backend {
	case "", "file":
		if err := errors.ValidatePath(opts.Path); err != nil {
			return nil, err
		}
		return File(opts.Path), nil
	case "mongo":
		return NewMongo(ctx, opts)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown source backend %q", opts.Backend)
	}
}

// File is a JSON record file.
type File string

func (f File) Load(context.Context) ([]family.PersonRecord, error) {
	records, err := kio.ImportRecords(string(f))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRecords, err, "load %s", string(f))
	}
	return records, nil
}

func (File) Close(context.Context) error { return nil }

func (f File) String() string { return fmt.Sprintf("file(%s)", string(f)) }
