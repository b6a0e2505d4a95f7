package sysinfo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/five82/pidash/internal/stream"
)

// Keys of the time bucket. A message carrying uptime belongs to it.
const (
	KeyUptime    = "uptime"
	KeyLocaltime = "localtime"
	KeyStartTime = "startTime"
)

// TimeInfo is the typed view of the time bucket.
type TimeInfo struct {
	// Uptime is the device uptime in seconds.
	Uptime *float64
	// Localtime is the device wall clock.
	Localtime *time.Time
	// StartTime is when the device service started.
	StartTime *time.Time
}

// CPUStatus is cpu_info overlaid with cpu_usage.
type CPUStatus struct {
	Load1   float64     `json:"load_1"`
	Load5   float64     `json:"load_5"`
	Load15  float64     `json:"load_15"`
	Usages  [][]float64 `json:"usages"`
	CPUTemp *float64    `json:"cpu_temp"`
}

// Memory is mem_info. Sizes are bytes; Percent is a fraction.
type Memory struct {
	Total   float64 `json:"total_mem"`
	Free    float64 `json:"free_mem"`
	Percent float64 `json:"percent"`
}

// Used returns Total minus Free.
func (m Memory) Used() float64 {
	return m.Total - m.Free
}

// Partition is one hdd_info entry. Sizes are megabytes; Percent is 0-100.
type Partition struct {
	Mount   string  `json:"mount"`
	Type    string  `json:"type"`
	Percent float64 `json:"percent"`
	Total   float64 `json:"total"`
	Used    float64 `json:"used"`
	Avail   float64 `json:"avail"`
}

// Counters are the traffic totals for one direction of an interface.
type Counters struct {
	Bytes   float64 `json:"bytes"`
	Error   int64   `json:"error"`
	Dropped int64   `json:"dropped"`
}

// Interface is one netstats entry.
type Interface struct {
	Name   string   `json:"interface"`
	IPAddr string   `json:"ipaddr"`
	RX     Counters `json:"rx"`
	TX     Counters `json:"tx"`
}

// Device is cpu_info overlaid with os_info.
type Device struct {
	Hostname     string   `json:"hostname"`
	HostIP       []string `json:"host_ip"`
	Type         string   `json:"type"`
	Release      string   `json:"release"`
	Processor    string   `json:"processor"`
	Distribution string   `json:"distribution"`
}

// PrimaryIP returns the first host address, or "".
func (d Device) PrimaryIP() string {
	if len(d.HostIP) == 0 {
		return ""
	}
	return d.HostIP[0]
}

// General is the typed view of the general bucket.
type General struct {
	CPU        CPUStatus
	Memory     Memory
	Partitions []Partition
	Interfaces []Interface
	Device     Device
}

// DecodeTime reads the time bucket.
func DecodeTime(d stream.Doc) (TimeInfo, error) {
	var out TimeInfo
	var uptime *float64
	if _, err := d.Field(KeyUptime, &uptime); err != nil {
		return out, err
	}
	out.Uptime = uptime

	local, err := decodeInstant(d[KeyLocaltime])
	if err != nil {
		return out, fmt.Errorf("decode %s: %w", KeyLocaltime, err)
	}
	out.Localtime = local

	start, err := decodeInstant(d[KeyStartTime])
	if err != nil {
		return out, fmt.Errorf("decode %s: %w", KeyStartTime, err)
	}
	out.StartTime = start
	return out, nil
}

// DecodeGeneral reads the general bucket. Objects that are split across two
// keys are overlaid in the order the device documents them.
func DecodeGeneral(d stream.Doc) (General, error) {
	var out General
	for _, key := range []string{"cpu_info", "cpu_usage"} {
		if err := overlay(d, key, &out.CPU); err != nil {
			return out, err
		}
	}
	for _, key := range []string{"cpu_info", "os_info"} {
		if err := overlay(d, key, &out.Device); err != nil {
			return out, err
		}
	}
	if err := overlay(d, "mem_info", &out.Memory); err != nil {
		return out, err
	}
	if _, err := d.Field("hdd_info", &out.Partitions); err != nil {
		return out, err
	}
	if _, err := d.Field("netstats", &out.Interfaces); err != nil {
		return out, err
	}
	return out, nil
}

// overlay decodes an object field into dest, leaving fields it does not
// mention untouched. A null or absent value is skipped.
func overlay(d stream.Doc, key string, dest any) error {
	raw := bytes.TrimSpace(d[key])
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// decodeInstant accepts epoch milliseconds or an RFC 3339 string.
func decodeInstant(raw json.RawMessage) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return nil, err
	}
	t := time.UnixMilli(int64(ms))
	return &t, nil
}
