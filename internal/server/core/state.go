package core

// Units is the measurement system a user records weights in
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

func (u Units) Valid() bool {
	return u == UnitsMetric || u == UnitsImperial
}

func (u Units) String() string {
	return string(u)
}

// Source records where a workout came from
type Source string

const (
	SourceApp    Source = "app"
	SourceImport Source = "import"
	SourceMCP    Source = "mcp"
)

func (s Source) Valid() bool {
	switch s {
	case SourceApp, SourceImport, SourceMCP:
		return true
	default:
		return false
	}
}

func (s Source) String() string {
	if s == "" {
		return string(SourceApp)
	}
	return string(s)
}
