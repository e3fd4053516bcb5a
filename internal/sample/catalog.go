package sample

import "strconv"

// Field indexes a catalog metric.
type Field int

const (
	ActiveConnections Field = iota
	WaitingConnections
	MaxConnections
	ConnectionsPercentageUsed
	LoadAverage1m
	LoadAverage5m
	LoadAverage15m
	ReadIOPS
	WriteIOPS
	IOPSPercentageUsed
	TmpDiskUsed
	TmpDiskAvailable
	MemoryTotal
	MemoryFree
	MemoryPercentageUsed
	MemoryCached
	MemoryPostgres

	FieldCount
)

// Kind is the semantic type of a field's normalized value.
type Kind int

const (
	Count Kind = iota
	Percent
	Rate
	Gigabytes
)

// Conversion normalizes a raw token value.
type Conversion func(raw string) (float64, error)

// Spec describes how a catalog field is extracted and normalized.
type Spec struct {
	Field      Field
	Name       string
	Prefix     string
	Default    string
	Kind       Kind
	Convert    Conversion
	Aggregated bool
}

func parseCount(raw string) (float64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	return float64(n), err
}

func parseRate(raw string) (float64, error) {
	return strconv.ParseFloat(raw, 64)
}

func parsePercent(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return FractionToPercent(f), nil
}

func parseBytes(raw string) (float64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return BytesToGB(float64(n)), nil
}

var catalog = [FieldCount]Spec{
	{ActiveConnections, "Active Connections", "sample#active-connections=", "0", Count, parseCount, true},
	{WaitingConnections, "Waiting Connections", "sample#waiting-connections=", "0", Count, parseCount, true},
	// role-derived capacity, reported alongside Max IOPS rather than aggregated
	{MaxConnections, "Max Connections", "sample#max-connections=", "0", Count, parseCount, false},
	{ConnectionsPercentageUsed, "Connections Percentage Used", "sample#connections-percentage-used=", "0", Percent, parsePercent, true},
	{LoadAverage1m, "Load Average (1m)", "sample#load-avg-1m=", "0", Rate, parseRate, true},
	{LoadAverage5m, "Load Average (5m)", "sample#load-avg-5m=", "0", Rate, parseRate, true},
	{LoadAverage15m, "Load Average (15m)", "sample#load-avg-15m=", "0", Rate, parseRate, true},
	{ReadIOPS, "Read IOPS", "sample#read-iops=", "0", Rate, parseRate, true},
	{WriteIOPS, "Write IOPS", "sample#write-iops=", "0", Rate, parseRate, true},
	{IOPSPercentageUsed, "IOPS Percentage Used", "sample#iops-percentage-used=", "0", Percent, parsePercent, true},
	{TmpDiskUsed, "Temporary Disk Used", "sample#tmp-disk-used=", "0", Gigabytes, parseBytes, true},
	{TmpDiskAvailable, "Temporary Disk Available", "sample#tmp-disk-available=", "0", Gigabytes, parseBytes, true},
	{MemoryTotal, "Memory Total", "sample#memory-total=", "0kB", Gigabytes, KBToGB, true},
	{MemoryFree, "Memory Free", "sample#memory-free=", "0kB", Gigabytes, KBToGB, true},
	{MemoryPercentageUsed, "Memory Percentage Used", "sample#memory-percentage-used=", "0", Percent, parsePercent, true},
	{MemoryCached, "Memory Cached", "sample#memory-cached=", "0kB", Gigabytes, KBToGB, true},
	{MemoryPostgres, "Memory Postgres", "sample#memory-postgres=", "0kB", Gigabytes, KBToGB, true},
}

// Catalog returns the field specs in report order.
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog[:])
	return out
}

// AggregatedFields returns the specs of fields that get running statistics.
func AggregatedFields() []Spec {
	out := make([]Spec, 0, len(catalog))
	for _, s := range catalog {
		if s.Aggregated {
			out = append(out, s)
		}
	}
	return out
}

// Lookup returns the spec of f.
func Lookup(f Field) Spec {
	return catalog[f]
}

func (f Field) String() string {
	if f < 0 || f >= FieldCount {
		return "Field(" + strconv.Itoa(int(f)) + ")"
	}
	return catalog[f].Name
}
