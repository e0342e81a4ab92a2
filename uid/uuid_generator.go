package uid

import (
	"encoding/hex"

	"github.com/google/uuid"
)

type UUIDOptions struct {
	// Version v1 v4 v6 v7，默认 v4
	Version string `cfg:"version" def:"v4"`
	// WithHyphens 是否保留连字符，GUID 列需要保留
	WithHyphens bool `cfg:"withHyphens"`
}

type UUIDGenerator struct {
	version     string
	withHyphens bool
}

func NewUUIDGeneratorWithOptions(options *UUIDOptions) *UUIDGenerator {
	if options == nil {
		options = &UUIDOptions{}
	}
	version := options.Version
	if version == "" {
		version = "v4"
	}
	return &UUIDGenerator{version: version, withHyphens: options.WithHyphens}
}

func (g *UUIDGenerator) Generate() string {
	var u uuid.UUID
	switch g.version {
	case "v1":
		u = uuid.Must(uuid.NewUUID())
	case "v6":
		u = uuid.Must(uuid.NewV6())
	case "v7":
		u = uuid.Must(uuid.NewV7())
	default:
		u = uuid.New()
	}

	if g.withHyphens {
		return u.String()
	}
	return hex.EncodeToString(u[:])
}
