package policydoc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// FileSource reads <filename> for each key from a directory.
type FileSource struct {
	fsys fs.FS
}

func NewFileSource(fsys fs.FS) *FileSource {
	return &FileSource{fsys: fsys}
}

func NewDirSource(dir string) *FileSource {
	return NewFileSource(os.DirFS(dir))
}

func (s *FileSource) Fetch(_ context.Context, key Key) (string, error) {
	raw, err := fs.ReadFile(s.fsys, key.Filename())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key.Filename())
		}
		return "", err
	}
	return string(raw), nil
}

// ssmAPI is the part of *ssm.Client that SSMSource needs.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSource reads each document from the parameter <prefix>/<key>.
type SSMSource struct {
	api    ssmAPI
	prefix string
}

func NewSSMSource(api ssmAPI, prefix string) (*SSMSource, error) {
	if api == nil {
		return nil, errors.New("policydoc: ssm api must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return nil, errors.New("policydoc: ssm prefix is required")
	}
	return &SSMSource{api: api, prefix: prefix}, nil
}

func (s *SSMSource) Fetch(ctx context.Context, key Key) (string, error) {
	name := s.prefix + "/" + string(key)
	withDecryption := true
	out, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("policydoc: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("%w: %s has no value", ErrNotFound, name)
	}
	return *out.Parameter.Value, nil
}
