package core

// Report describes what a generator run rewrote. It is what
// `macrogen generate --report` serializes.
type Report struct {
	Files []FileReport `yaml:"files"`
}

type FileReport struct {
	Source  string         `yaml:"source"`
	Output  string         `yaml:"output"`
	Written bool           `yaml:"written"`
	Structs []StructReport `yaml:"structs"`

	Generated []byte `yaml:"-"`
}

type StructReport struct {
	Name   string        `yaml:"name"`
	Fields []FieldReport `yaml:"fields,omitempty"`
}

type FieldReport struct {
	Name       string `yaml:"name"`
	Macro      string `yaml:"macro"`
	Constraint string `yaml:"constraint"`
	Backing    string `yaml:"backing"`
	Getter     string `yaml:"getter"`
	Setter     string `yaml:"setter"`
	// Constructor is "extended" or "synthesized".
	Constructor string `yaml:"constructor"`
}

func (r *Report) FieldCount() int {
	n := 0
	for _, f := range r.Files {
		for _, s := range f.Structs {
			n += len(s.Fields)
		}
	}
	return n
}
