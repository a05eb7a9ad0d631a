package builder

import (
	"github.com/silvamed/ontoforge/ontology"
)

// buildMergePatch computes the total merge of a candidate into an
// existing entity. Precedence rules:
//
//   - blank existing fields are filled from the candidate
//   - non-blank existing fields are kept, unless the candidate's
//     confidence strictly exceeds the existing confidence plus the
//     override margin, in which case the candidate wins and the field
//     name lands in the returned override list
//   - confidence itself ratchets up, never down
//   - tags and specifications are unioned
//
// The patch is empty when the candidate adds nothing.
func buildMergePatch(existing *ontology.Entity, cand *EntityCandidate, margin float64) (ontology.EntityPatch, []string) {
	var patch ontology.EntityPatch
	var overridden []string

	override := cand.Confidence > existing.Meta.Confidence+margin

	merge := func(name string, old, new string) *string {
		if new == "" || new == old {
			return nil
		}
		if old == "" {
			return &new
		}
		if override {
			overridden = append(overridden, name)
			return &new
		}
		return nil
	}

	patch.Description = merge("description", existing.Description, cand.Description)
	patch.MediaRef = merge("media_ref", existing.MediaRef, cand.MediaRef)

	if cand.Confidence > existing.Meta.Confidence {
		patch.Confidence = &cand.Confidence
	}

	if added := mergeTags(existing.Meta.Tags, cand.Tags); added != nil {
		patch.Tags = added
	}
	if specs := mergeSpecs(existing.Specs, cand.Specs, override); len(specs) > 0 {
		patch.Specs = specs
	}

	switch existing.Kind {
	case ontology.KindSystem:
		if cand.System == nil || existing.System == nil {
			break
		}
		attrs := *existing.System
		changed := false
		set := func(name string, dst *string, src string) {
			if v := merge(name, *dst, src); v != nil {
				*dst = *v
				changed = true
			}
		}
		set("model_number", &attrs.ModelNumber, cand.System.ModelNumber)
		set("manufacturer", &attrs.Manufacturer, cand.System.Manufacturer)
		set("serial_number", &attrs.SerialNumber, cand.System.SerialNumber)
		set("software_version", &attrs.SoftwareVersion, cand.System.SoftwareVersion)
		set("hardware_version", &attrs.HardwareVersion, cand.System.HardwareVersion)
		if changed {
			patch.System = &attrs
		}
	case ontology.KindComponent:
		if cand.Component == nil || existing.Component == nil {
			break
		}
		attrs := *existing.Component
		changed := false
		set := func(name string, dst *string, src string) {
			if v := merge(name, *dst, src); v != nil {
				*dst = *v
				changed = true
			}
		}
		set("component_type", &attrs.ComponentType, cand.Component.ComponentType)
		set("part_number", &attrs.PartNumber, cand.Component.PartNumber)
		set("manufacturer", &attrs.Manufacturer, cand.Component.Manufacturer)
		set("model", &attrs.Model, cand.Component.Model)
		set("maintenance_schedule", &attrs.MaintenanceSchedule, cand.Component.MaintenanceSchedule)
		if v := merge("lifecycle_status", string(attrs.LifecycleStatus), string(cand.Component.LifecycleStatus)); v != nil {
			attrs.LifecycleStatus = ontology.LifecycleStatus(*v)
			changed = true
		}
		if changed {
			patch.Component = &attrs
		}
	case ontology.KindSparePart:
		if cand.SparePart == nil || existing.SparePart == nil {
			break
		}
		attrs := *existing.SparePart
		changed := false
		set := func(name string, dst *string, src string) {
			if v := merge(name, *dst, src); v != nil {
				*dst = *v
				changed = true
			}
		}
		set("part_number", &attrs.PartNumber, cand.SparePart.PartNumber)
		set("manufacturer", &attrs.Manufacturer, cand.SparePart.Manufacturer)
		set("supplier", &attrs.Supplier, cand.SparePart.Supplier)
		set("maintenance_cycle", &attrs.MaintenanceCycle, cand.SparePart.MaintenanceCycle)
		set("replacement_frequency", &attrs.ReplacementFrequency, cand.SparePart.ReplacementFrequency)
		set("lead_time", &attrs.LeadTime, cand.SparePart.LeadTime)
		if v := merge("lifecycle_status", string(attrs.LifecycleStatus), string(cand.SparePart.LifecycleStatus)); v != nil {
			attrs.LifecycleStatus = ontology.LifecycleStatus(*v)
			changed = true
		}
		if cand.SparePart.StockLevel != 0 && (attrs.StockLevel == 0 || override) {
			if attrs.StockLevel != cand.SparePart.StockLevel {
				if attrs.StockLevel != 0 {
					overridden = append(overridden, "stock_level")
				}
				attrs.StockLevel = cand.SparePart.StockLevel
				changed = true
			}
		}
		if cand.SparePart.ReorderPoint != 0 && (attrs.ReorderPoint == 0 || override) {
			if attrs.ReorderPoint != cand.SparePart.ReorderPoint {
				if attrs.ReorderPoint != 0 {
					overridden = append(overridden, "reorder_point")
				}
				attrs.ReorderPoint = cand.SparePart.ReorderPoint
				changed = true
			}
		}
		if changed {
			patch.SparePart = &attrs
		}
	}
	// Subsystem attrs carry only the type enum, which identity resolution
	// already agreed on; nothing to merge.

	return patch, overridden
}

// mergeTags returns the unioned tag set, or nil when the candidate adds
// no new tags.
func mergeTags(existing, incoming []string) []string {
	added := false
	out := append([]string(nil), existing...)
	for _, t := range incoming {
		found := false
		for _, have := range out {
			if have == t {
				found = true
				break
			}
		}
		if !found {
			out = append(out, t)
			added = true
		}
	}
	if !added {
		return nil
	}
	return out
}

// mergeSpecs returns the specification entries to add or overwrite.
func mergeSpecs(existing, incoming map[string]ontology.Specification, override bool) map[string]ontology.Specification {
	out := make(map[string]ontology.Specification)
	for name, spec := range incoming {
		have, ok := existing[name]
		if !ok {
			out[name] = spec
			continue
		}
		if override && have != spec {
			out[name] = spec
		}
	}
	return out
}
