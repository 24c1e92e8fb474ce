package usecase

import (
	"crypto/rand"
	"errors"
	"io"
	"strings"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/config"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
)

// CodeFormat describes how codes look: symbols drawn from Alphabet, Length of
// them, shown in dash-separated groups of GroupSize (0 = no grouping).
type CodeFormat struct {
	Alphabet  string
	Length    int
	GroupSize int
}

// DefaultCodeFormat yields XXXX-XXXX-XXXX over an alphabet without O/0/I/1.
func DefaultCodeFormat() CodeFormat {
	return CodeFormat{Alphabet: config.DefaultAlphabet, Length: 12, GroupSize: 4}
}

func CodeFormatFromConfig(c config.CodesConfig) CodeFormat {
	f := CodeFormat{Alphabet: c.Alphabet, Length: c.Length, GroupSize: c.GroupSize}
	if f.GroupSize < 0 {
		f.GroupSize = 0
	}
	return f
}

// GenerateCandidate draws length symbols from alphabet using src. Bytes that
// would bias the distribution are rejected and redrawn.
func GenerateCandidate(src io.Reader, alphabet string, length int) (string, error) {
	n := len(alphabet)
	if n < 2 || n > 256 || length <= 0 {
		return "", domain.ErrInvalidArgument
	}
	if src == nil {
		src = rand.Reader
	}
	limit := 256 - 256%n
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// Format inserts dashes every GroupSize symbols.
func (f CodeFormat) Format(raw string) string {
	if f.GroupSize <= 0 || len(raw) <= f.GroupSize {
		return raw
	}
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if i > 0 && i%f.GroupSize == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(raw[i])
	}
	return b.String()
}

// Normalize turns user input ("abcd efgh-jkmn") into the stored form
// ("ABCD-EFGH-JKMN"). Input that cannot be a code yields ErrInvalidArgument.
func (f CodeFormat) Normalize(input string) (string, error) {
	s := strings.TrimSpace(input)
	if f.Alphabet == strings.ToUpper(f.Alphabet) {
		s = strings.ToUpper(s)
	}
	raw := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
	if raw == "" {
		return "", domain.ErrInvalidArgument
	}
	if f.Length > 0 && len(raw) != f.Length {
		return "", errors.Join(domain.ErrInvalidArgument, errors.New("unexpected code length"))
	}
	for i := 0; i < len(raw); i++ {
		if strings.IndexByte(f.Alphabet, raw[i]) < 0 {
			return "", errors.Join(domain.ErrInvalidArgument, errors.New("unexpected character in code"))
		}
	}
	return f.Format(raw), nil
}
