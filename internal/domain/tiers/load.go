package tiers

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/cuerank/internal/domain/errs"
)

// Load reads a table from a YAML file and validates it. Any failure, including
// a missing file, is reported as a configuration error so startup aborts.
func Load(path string) (*Table, error) {
	const op = "tiers.load"

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, errs.WrapKind(op, errs.ErrConfiguration, err)
	}

	var t Table
	if err := k.UnmarshalWithConf("", &t, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errs.WrapKind(op, errs.ErrConfiguration, err)
	}
	if err := t.Validate(); err != nil {
		return nil, errs.Wrap(op, err)
	}
	return &t, nil
}
