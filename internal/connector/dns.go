package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
	"github.com/isometry/terraform-provider-dccon/internal/dns"
	"github.com/isometry/terraform-provider-dccon/internal/logging"
)

// ZoneKind selects zones by classification.
type ZoneKind string

const (
	ZoneKindAll     ZoneKind = "all"
	ZoneKindForward ZoneKind = "forward"
	ZoneKindReverse ZoneKind = "reverse"
)

// ParseZoneKind accepts all, forward and reverse. Empty means all.
func ParseZoneKind(s string) (ZoneKind, error) {
	switch k := ZoneKind(s); k {
	case "":
		return ZoneKindAll, nil
	case ZoneKindAll, ZoneKindForward, ZoneKindReverse:
		return k, nil
	}
	return "", dcerr.Precondition("parse_zone_kind", s, "must be one of all, forward, reverse")
}

// ListZones returns the visible zones of kind in display order.
func (s *Service) ListZones(ctx context.Context, kind ZoneKind) ([]dns.Zone, error) {
	zones, err := s.tool.ListZones(ctx)
	if err != nil {
		return nil, err
	}
	switch kind {
	case ZoneKindForward:
		return s.dns.ForwardZones(zones), nil
	case ZoneKindReverse:
		return s.dns.ReverseZones(zones), nil
	default:
		return s.dns.VisibleZones(zones), nil
	}
}

// ListForwardZones returns the visible non-reverse zones.
func (s *Service) ListForwardZones(ctx context.Context) ([]dns.Zone, error) {
	return s.ListZones(ctx, ZoneKindForward)
}

// ListReverseZones returns the visible reverse zones.
func (s *Service) ListReverseZones(ctx context.Context) ([]dns.Zone, error) {
	return s.ListZones(ctx, ZoneKindReverse)
}

// GetZone returns the zone name, including excluded zones, or NotFound.
func (s *Service) GetZone(ctx context.Context, name string) (dns.Zone, error) {
	zones, err := s.tool.ListZones(ctx)
	if err != nil {
		return dns.Zone{}, err
	}
	for _, z := range zones {
		if equalZone(z.Name, name) {
			return z, nil
		}
	}
	return dns.Zone{}, dcerr.NotFound("get_zone", name)
}

// CreateZone creates zone name. An existing zone is reported as
// AlreadyExists.
func (s *Service) CreateZone(ctx context.Context, name string) (dns.Zone, error) {
	if _, err := s.GetZone(ctx, name); err == nil {
		return dns.Zone{}, dcerr.AlreadyExists("create_zone", name)
	} else if !dcerr.IsNotFound(err) {
		return dns.Zone{}, err
	}
	if err := s.tool.CreateZone(ctx, name); err != nil {
		return dns.Zone{}, err
	}
	return dns.Zone{Name: name}, nil
}

// DeleteZone removes zone name with all its records.
func (s *Service) DeleteZone(ctx context.Context, name string) error {
	if _, err := s.GetZone(ctx, name); err != nil {
		return err
	}
	return s.tool.DeleteZone(ctx, name)
}

// ListRecords returns the visible nodes of zone whose name matches, in
// display order.
func (s *Service) ListRecords(ctx context.Context, zone string, match Matcher) ([]dns.Entry, error) {
	entries, err := s.tool.ListRecords(ctx, zone)
	if err != nil {
		return nil, err
	}
	visible := s.dns.VisibleEntries(entries)
	out := visible[:0]
	for _, e := range visible {
		if match.Match(e.Name) {
			out = append(out, e)
		}
	}
	return out, nil
}

// RecordExists reports whether zone holds record.
func (s *Service) RecordExists(ctx context.Context, zone string, record dns.Record) (bool, error) {
	return s.sync.RecordExists(ctx, zone, record)
}

// AddRecord writes record and its A/PTR counterpart.
func (s *Service) AddRecord(ctx context.Context, zone string, record dns.Record) (*dns.BindResult, error) {
	var result *dns.BindResult
	err := logging.Operation(ctx, logging.SubsystemConnector, "add_dns_record", map[string]any{
		"zone":   zone,
		"record": fmt.Sprintf("%s %s %s", record.Name, record.Type, record.Value),
	}, func() error {
		var err error
		result, err = s.sync.AddRecord(ctx, zone, record)
		return err
	})
	return result, err
}

// DeleteRecord removes record from zone. An absent record is reported as
// NotFound.
func (s *Service) DeleteRecord(ctx context.Context, zone string, record dns.Record) error {
	exists, err := s.sync.RecordExists(ctx, zone, record)
	if err != nil {
		return err
	}
	if !exists {
		return dcerr.NotFound("delete_dns_record", recordID(zone, record))
	}
	return s.sync.DeleteRecord(ctx, zone, record)
}

// UpdateRecord replaces the value of record in zone.
func (s *Service) UpdateRecord(ctx context.Context, zone string, record dns.Record, newValue string) error {
	exists, err := s.sync.RecordExists(ctx, zone, record)
	if err != nil {
		return err
	}
	if !exists {
		return dcerr.NotFound("update_dns_record", recordID(zone, record))
	}
	if dns.EqualValues(record.Type, record.Value, newValue) {
		return nil
	}
	return s.sync.UpdateRecord(ctx, zone, record, newValue)
}

func recordID(zone string, r dns.Record) string {
	return fmt.Sprintf("%s/%s/%s/%s", zone, r.Name, r.Type, r.Value)
}

func equalZone(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}
