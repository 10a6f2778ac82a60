package dns

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/terraform-provider-dccon/internal/logging"
)

// RecordTool is the part of the domain tool the synchronizer drives.
type RecordTool interface {
	ListZones(ctx context.Context) ([]Zone, error)
	ListRecords(ctx context.Context, zone string) ([]Entry, error)
	AddRecord(ctx context.Context, zone string, record Record) error
	DeleteRecord(ctx context.Context, zone string, record Record) error
	UpdateRecord(ctx context.Context, zone string, record Record, newValue string) error
}

// RecordOutcome describes one record write.
type RecordOutcome struct {
	Zone   string
	Record Record
	// Created is false when an identical record was already present.
	Created bool
}

// MirrorOutcome describes the counterpart write of a bind.
type MirrorOutcome struct {
	RecordOutcome

	// Skipped is set when no counterpart applies; Reason says why.
	Skipped bool
	Reason  string
	// Err is a failed counterpart write. The primary record stays written.
	Err error
}

// BindResult is the outcome of Synchronizer.AddRecord.
type BindResult struct {
	Primary RecordOutcome
	Mirror  MirrorOutcome
}

// Consistent reports whether both sides of the binding are in place or the
// counterpart was legitimately skipped.
func (r *BindResult) Consistent() bool {
	return r.Mirror.Err == nil
}

// Synchronizer keeps A records in forward zones and PTR records in reverse
// zones paired on creation.
type Synchronizer struct {
	cfg  *Config
	tool RecordTool
}

// NewSynchronizer creates a synchronizer classifying zones with cfg.
func NewSynchronizer(cfg *Config, tool RecordTool) *Synchronizer {
	return &Synchronizer{cfg: cfg, tool: tool}
}

// RecordExists reports whether zone holds a record with the same name, type
// and value.
func (s *Synchronizer) RecordExists(ctx context.Context, zone string, record Record) (bool, error) {
	entries, err := s.tool.ListRecords(ctx, zone)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !strings.EqualFold(e.Name, record.Name) {
			continue
		}
		for _, r := range e.Records {
			probe := r
			probe.Name = e.Name
			if probe.Matches(record) {
				return true, nil
			}
		}
	}
	return false, nil
}

// ensure writes record unless an identical one already exists.
func (s *Synchronizer) ensure(ctx context.Context, zone string, record Record) (RecordOutcome, error) {
	out := RecordOutcome{Zone: zone, Record: record}

	exists, err := s.RecordExists(ctx, zone, record)
	if err != nil {
		return out, err
	}
	if exists {
		tflog.SubsystemDebug(ctx, logging.SubsystemDNS, "Record already present, skipping", recordFields(zone, record))
		return out, nil
	}

	if err := s.tool.AddRecord(ctx, zone, record); err != nil {
		return out, err
	}
	out.Created = true
	return out, nil
}

// AddRecord writes record into zone and mirrors it: an A record in a forward
// zone gets a PTR in the reverse zone owning its address, a PTR record in a
// reverse zone gets an A record in the forward zone owning its target.
// Both writes are idempotent.
//
// A missing counterpart zone marks the mirror skipped. A failed counterpart
// write is reported in the result's Mirror.Err and does not fail the call.
// Errors in deriving the counterpart name are returned.
func (s *Synchronizer) AddRecord(ctx context.Context, zone string, record Record) (*BindResult, error) {
	rrType, err := ParseRecordType(record.Type)
	if err != nil {
		return nil, err
	}
	record.Type = rrType
	if err := record.Validate(); err != nil {
		return nil, err
	}

	result := &BindResult{}
	err = logging.Operation(ctx, logging.SubsystemDNS, "add_record", recordFields(zone, record), func() error {
		primary, err := s.ensure(ctx, zone, record)
		result.Primary = primary
		if err != nil {
			return fmt.Errorf("adding %s record %s to zone %s: %w", record.Type, record.Name, zone, err)
		}
		return s.mirror(ctx, zone, record, &result.Mirror)
	})
	if err != nil {
		return result, err
	}

	if result.Mirror.Err != nil {
		f := recordFields(result.Mirror.Zone, result.Mirror.Record)
		f["error"] = result.Mirror.Err.Error()
		tflog.SubsystemWarn(ctx, logging.SubsystemDNS, "Counterpart record could not be written", f)
	}
	return result, nil
}

func (s *Synchronizer) mirror(ctx context.Context, zone string, record Record, out *MirrorOutcome) error {
	reverse := s.cfg.IsReverseZone(zone)
	switch {
	case reverse && record.Type == TypePTR:
	case !reverse && record.Type == TypeA:
	default:
		out.Skipped = true
		out.Reason = fmt.Sprintf("%s record in %s zone has no counterpart", record.Type, zoneKind(reverse))
		return nil
	}
	if reverse {
		if suffix, _ := s.cfg.reverseSuffix(zone); suffix != inAddrArpa {
			out.Skipped = true
			out.Reason = fmt.Sprintf("reverse zone %s is not an IPv4 zone", zone)
			return nil
		}
	}

	zones, err := s.tool.ListZones(ctx)
	if err != nil {
		out.Err = fmt.Errorf("listing zones: %w", err)
		return nil
	}

	var target Record
	var targetZone Zone
	if reverse {
		ip, err := s.cfg.ReverseLabelToIP(record.Name, zone)
		if err != nil {
			return err
		}
		var ok bool
		if targetZone, ok = s.cfg.FindOwningForwardZone(record.Value, zones); !ok {
			out.Skipped = true
			out.Reason = fmt.Sprintf("no forward zone owns %s", record.Value)
			return nil
		}
		label, err := HostLabelWithinZone(record.Value, targetZone.Name)
		if err != nil {
			return err
		}
		target = Record{Name: label, Type: TypeA, Value: ip}
	} else {
		var ok bool
		if targetZone, ok = s.cfg.FindOwningReverseZone(record.Value, zones); !ok {
			out.Skipped = true
			out.Reason = fmt.Sprintf("no reverse zone owns %s", record.Value)
			return nil
		}
		label, err := s.cfg.IPToReverseLabel(record.Value, targetZone.Name)
		if err != nil {
			return err
		}
		target = Record{Name: label, Type: TypePTR, Value: qualify(record.Name, zone)}
	}

	outcome, err := s.ensure(ctx, targetZone.Name, target)
	out.RecordOutcome = outcome
	if err != nil {
		out.Err = err
	}
	return nil
}

// DeleteRecord removes record from zone. The counterpart is left alone.
func (s *Synchronizer) DeleteRecord(ctx context.Context, zone string, record Record) error {
	rrType, err := ParseRecordType(record.Type)
	if err != nil {
		return err
	}
	record.Type = rrType
	return logging.Operation(ctx, logging.SubsystemDNS, "delete_record", recordFields(zone, record), func() error {
		return s.tool.DeleteRecord(ctx, zone, record)
	})
}

// UpdateRecord changes the value of record in zone. The counterpart is left
// alone.
func (s *Synchronizer) UpdateRecord(ctx context.Context, zone string, record Record, newValue string) error {
	rrType, err := ParseRecordType(record.Type)
	if err != nil {
		return err
	}
	record.Type = rrType
	if err := (Record{Name: record.Name, Type: rrType, Value: newValue}).Validate(); err != nil {
		return err
	}

	f := recordFields(zone, record)
	f["new_value"] = newValue
	return logging.Operation(ctx, logging.SubsystemDNS, "update_record", f, func() error {
		return s.tool.UpdateRecord(ctx, zone, record, newValue)
	})
}

// qualify returns the FQDN of a node name within zone.
func qualify(name, zone string) string {
	if name == ZoneApex {
		return trimDot(zone)
	}
	return name + "." + trimDot(zone)
}

func zoneKind(reverse bool) string {
	if reverse {
		return "reverse"
	}
	return "forward"
}

func recordFields(zone string, r Record) map[string]any {
	return map[string]any{
		"zone":  zone,
		"name":  r.Name,
		"type":  r.Type,
		"value": r.Value,
	}
}
