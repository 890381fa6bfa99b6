package policydoc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("policy document not found")

type Key string

const (
	KeyTerms        Key = "terms"
	KeyPrivacy      Key = "privacy"
	KeyCompliance   Key = "compliance"
	KeyDataHandling Key = "data_handling"
)

// Keys lists every policy document in the order it appears in the prompt.
var Keys = []Key{KeyTerms, KeyPrivacy, KeyCompliance, KeyDataHandling}

// Filename is the document's file name, also used in placeholders.
func (k Key) Filename() string {
	switch k {
	case KeyTerms:
		return "terms_of_service.txt"
	case KeyPrivacy:
		return "privacy_policy.txt"
	case KeyCompliance:
		return "compliance_guidelines.txt"
	case KeyDataHandling:
		return "data_handling.txt"
	default:
		return string(k) + ".txt"
	}
}

func (k Key) heading() string {
	switch k {
	case KeyTerms:
		return "TERMS OF SERVICE"
	case KeyPrivacy:
		return "PRIVACY POLICY"
	case KeyCompliance:
		return "COMPLIANCE GUIDELINES"
	case KeyDataHandling:
		return "DATA HANDLING POLICY"
	default:
		return strings.ToUpper(strings.ReplaceAll(string(k), "_", " "))
	}
}

type Config struct {
	Path      string `envconfig:"PATH" split_words:"true" default:"./data/policies"`
	SSMPrefix string `envconfig:"SSM_PREFIX" split_words:"true"`
}

// Source fetches the raw text of one policy document. Missing documents are
// reported with ErrNotFound.
type Source interface {
	Fetch(ctx context.Context, key Key) (string, error)
}

// Documents holds the loaded text per key. Missing or unreadable documents
// carry a bracketed placeholder instead of failing the load.
type Documents map[Key]string

// Load reads every policy document once. It never fails; problems are logged
// and replaced by placeholders.
func Load(ctx context.Context, src Source) Documents {
	docs := make(Documents, len(Keys))
	for _, key := range Keys {
		name := key.Filename()
		if src == nil {
			docs[key] = fmt.Sprintf("[%s not available]", name)
			continue
		}

		text, err := src.Fetch(ctx, key)
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn().Str("document", name).Msg("policy document not found")
			docs[key] = fmt.Sprintf("[%s not available]", name)
		case err != nil:
			log.Error().Err(err).Str("document", name).Msg("policy document failed to load")
			docs[key] = fmt.Sprintf("[Error loading %s]", name)
		default:
			log.Info().Str("document", name).Msg("policy document loaded")
			docs[key] = text
		}
	}
	return docs
}

// Context renders the documents as the policy block of the system prompt.
func (d Documents) Context() string {
	var b strings.Builder
	for i, key := range Keys {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(key.heading())
		b.WriteString(":\n")
		b.WriteString(d[key])
	}
	return b.String()
}
