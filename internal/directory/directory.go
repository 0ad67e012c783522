package directory

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed doctors.yaml
var defaultRoster []byte

var ErrEmptyDirectory = errors.New("doctor directory is empty")

// DoctorRecord is the public shape returned by ListDoctors: specialty plus
// availability as day group -> period -> time range.
type DoctorRecord struct {
	Specialty    string                       `json:"specialty"`
	Availability map[string]map[string]string `json:"availability"`
}

type Period struct {
	Label  string
	Window Window
}

type DayGroup struct {
	Label   string
	Days    Days
	Kind    GroupKind
	Periods []Period // ordered by start time
}

type Doctor struct {
	Name      string
	Specialty string
	Groups    []DayGroup // most specific first
}

// GroupFor returns the day group that governs the given weekday. A single-day
// label beats a list, a list beats a range, a range beats "Daily".
func (d Doctor) GroupFor(wd time.Weekday) (DayGroup, bool) {
	for _, g := range d.Groups {
		if g.Days.Has(wd) {
			return g, true
		}
	}
	return DayGroup{}, false
}

func (d Doctor) record() DoctorRecord {
	avail := make(map[string]map[string]string, len(d.Groups))
	for _, g := range d.Groups {
		periods := make(map[string]string, len(g.Periods))
		for _, p := range g.Periods {
			periods[p.Label] = p.Window.Raw
		}
		avail[g.Label] = periods
	}
	return DoctorRecord{Specialty: d.Specialty, Availability: avail}
}

func (d Doctor) clone() Doctor {
	groups := make([]DayGroup, len(d.Groups))
	for i, g := range d.Groups {
		g.Periods = append([]Period(nil), g.Periods...)
		groups[i] = g
	}
	d.Groups = groups
	return d
}

// Directory is the immutable doctor roster. It is built once at startup and
// only handed out as copies.
type Directory struct {
	doctors []Doctor // sorted by name
	byKey   map[string]int
}

type rosterFile struct {
	Doctors []rosterDoctor `yaml:"doctors"`
}

type rosterDoctor struct {
	Name         string                       `yaml:"name"`
	Specialty    string                       `yaml:"specialty"`
	Availability map[string]map[string]string `yaml:"availability"`
}

// Default returns the embedded roster.
func Default() *Directory {
	dir, err := Load(bytes.NewReader(defaultRoster))
	if err != nil {
		panic(fmt.Sprintf("directory: embedded roster is invalid: %v", err))
	}
	return dir
}

func LoadFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Directory, error) {
	var file rosterFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if len(file.Doctors) == 0 {
		return nil, ErrEmptyDirectory
	}

	dir := &Directory{byKey: make(map[string]int, len(file.Doctors))}
	for _, rd := range file.Doctors {
		doc, err := buildDoctor(rd)
		if err != nil {
			return nil, err
		}
		dir.doctors = append(dir.doctors, doc)
	}
	sort.Slice(dir.doctors, func(i, j int) bool { return dir.doctors[i].Name < dir.doctors[j].Name })

	for i, doc := range dir.doctors {
		key := normalizeName(doc.Name)
		if _, dup := dir.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate doctor %q", doc.Name)
		}
		dir.byKey[key] = i
	}
	return dir, nil
}

func buildDoctor(rd rosterDoctor) (Doctor, error) {
	name := strings.TrimSpace(rd.Name)
	if name == "" || normalizeName(name) == "" {
		return Doctor{}, errors.New("doctor without a name")
	}
	if len(rd.Availability) == 0 {
		return Doctor{}, fmt.Errorf("doctor %q has no availability", name)
	}

	doc := Doctor{Name: name, Specialty: strings.TrimSpace(rd.Specialty)}
	for label, periods := range rd.Availability {
		days, kind, err := parseDayGroup(label)
		if err != nil {
			return Doctor{}, fmt.Errorf("doctor %q: %w", name, err)
		}
		if len(periods) == 0 {
			return Doctor{}, fmt.Errorf("doctor %q: day group %q has no periods", name, label)
		}
		group := DayGroup{Label: label, Days: days, Kind: kind}
		for periodLabel, raw := range periods {
			w, err := ParseWindow(raw)
			if err != nil {
				return Doctor{}, fmt.Errorf("doctor %q, %s %s: %w", name, label, periodLabel, err)
			}
			group.Periods = append(group.Periods, Period{Label: periodLabel, Window: w})
		}
		sort.Slice(group.Periods, func(i, j int) bool {
			a, b := group.Periods[i], group.Periods[j]
			if a.Window.Start != b.Window.Start {
				return a.Window.Start < b.Window.Start
			}
			return a.Label < b.Label
		})
		doc.Groups = append(doc.Groups, group)
	}

	sort.Slice(doc.Groups, func(i, j int) bool {
		a, b := doc.Groups[i], doc.Groups[j]
		if a.Kind != b.Kind {
			return a.Kind > b.Kind
		}
		return a.Label < b.Label
	})
	return doc, nil
}

// ListDoctors returns a fresh copy of the roster on every call.
func (d *Directory) ListDoctors() map[string]DoctorRecord {
	out := make(map[string]DoctorRecord, len(d.doctors))
	for _, doc := range d.doctors {
		out[doc.Name] = doc.record()
	}
	return out
}

// Lookup matches loosely: "khan", "dr khan" and "Dr. Khan" all resolve.
func (d *Directory) Lookup(name string) (Doctor, bool) {
	i, ok := d.byKey[normalizeName(name)]
	if !ok {
		return Doctor{}, false
	}
	return d.doctors[i].clone(), true
}

func (d *Directory) Names() []string {
	names := make([]string, len(d.doctors))
	for i, doc := range d.doctors {
		names[i] = doc.Name
	}
	return names
}

// Describe renders the roster as plain text for replies.
func (d *Directory) Describe() string {
	var b strings.Builder
	for i, doc := range d.doctors {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(DescribeDoctor(doc))
	}
	return b.String()
}

func DescribeDoctor(doc Doctor) string {
	var b strings.Builder
	b.WriteString(doc.Name)
	if doc.Specialty != "" {
		fmt.Fprintf(&b, " (%s)", doc.Specialty)
	}
	b.WriteString(":")
	for _, g := range doc.Groups {
		fmt.Fprintf(&b, "\n  %s:", g.Label)
		for i, p := range g.Periods {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, " %s %s", p.Label, p.Window)
		}
	}
	return b.String()
}

func normalizeName(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) > 1 && (fields[0] == "dr" || fields[0] == "doctor") {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}
