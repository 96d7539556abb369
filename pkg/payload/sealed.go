package payload

import (
	"github.com/jacktea/eigenkv/pkg/encryption"
)

// Sealed encrypts the output of another serializer. Like Gzip, the
// ciphertext is framed with a terminator byte.
type Sealed struct {
	Inner   Serializer
	Options encryption.Options
}

// NewSealed validates opts and wraps inner.
func NewSealed(inner Serializer, opts encryption.Options) (Sealed, error) {
	if err := opts.Validate(); err != nil {
		return Sealed{}, err
	}
	return Sealed{Inner: inner, Options: opts}, nil
}

func (s Sealed) Name() string { return s.inner().Name() + "+" + string(s.Options.Method) }

func (s Sealed) Marshal(v any) ([]byte, error) {
	raw, err := s.inner().Marshal(v)
	if err != nil {
		return nil, err
	}
	ciphertext, err := encryption.Encrypt(raw, s.Options)
	if err != nil {
		return nil, err
	}
	return seal(ciphertext), nil
}

func (s Sealed) Unmarshal(data []byte, v any) error {
	body, err := unseal(data)
	if err != nil {
		return err
	}
	raw, err := encryption.Decrypt(body, s.Options)
	if err != nil {
		return err
	}
	return s.inner().Unmarshal(raw, v)
}

func (s Sealed) inner() Serializer {
	if s.Inner == nil {
		return JSON{}
	}
	return s.Inner
}
