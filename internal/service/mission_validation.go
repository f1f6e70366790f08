package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/roadassist-console/internal/model"
)

var (
	namePattern      = regexp.MustCompile(`^[a-zA-ZÀ-ÿ\s\-']+$`)
	referencePattern = regexp.MustCompile(`^[a-zA-Z0-9\s_-]+$`)
	addressPattern   = regexp.MustCompile(`^[a-zA-Z0-9\s,.'-]+$`)
	makePattern      = regexp.MustCompile(`^[a-zA-ZÀ-ÿ\s-]+$`)
	modelPattern     = regexp.MustCompile(`^[a-zA-Z0-9À-ÿ\s-]+$`)

	phoneSeparators = regexp.MustCompile(`[\s\-.]`)
	phonePatterns   = []*regexp.Regexp{
		regexp.MustCompile(`^\+33[1-9]\d{8}$`),
		regexp.MustCompile(`^0[1-9]\d{8}$`),
	}

	plateSeparators = regexp.MustCompile(`[\s-]`)
	plateNonAlnum   = regexp.MustCompile(`[^A-Za-z0-9]`)
	plateCurrent    = regexp.MustCompile(`^([A-Z]{2})(\d{3})([A-Z]{2})$`)
	plateLegacy     = regexp.MustCompile(`^(\d{1,4})([A-Z]{1,3})(\d{1,3})$`)
)

// ValidationError lists every field of a mission request that failed.
type ValidationError struct {
	Fields []model.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid mission: " + strings.Join(parts, "; ")
}

// ValidateMissionRequest checks a mission before it is sent to the API.
// It returns a *ValidationError or nil.
func ValidateMissionRequest(req model.MissionRequest) error {
	checks := []struct {
		field string
		msg   string
	}{
		{"providerReference", validateProviderReference(req.ProviderReference)},
		{"missionType", validateMissionTypes(req.MissionType)},
		{"requesterName", validateRequesterName(req.RequesterName)},
		{"requesterPhone", validateRequesterPhone(req.RequesterPhone)},
		{"vehicleMake", validateVehicleMake(req.VehicleMake)},
		{"vehicleModel", validateVehicleModel(req.VehicleModel)},
		{"vehiclePlate", validateVehiclePlate(req.VehiclePlate)},
		{"pickupAddress", validateAddress("pickup address", req.PickupAddress)},
		{"destinationAddress", validateAddress("destination address", req.DestinationAddress)},
		{"notes", validateNotes(req.Notes)},
	}

	var out []model.FieldError
	for _, c := range checks {
		if c.msg != "" {
			out = append(out, model.FieldError{Field: c.field, Message: c.msg})
		}
	}
	if len(out) > 0 {
		return &ValidationError{Fields: out}
	}
	return nil
}

func length(s string) int { return utf8.RuneCountInString(s) }

func validateRequesterName(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return "requester name is required"
	case length(v) < 3:
		return "requester name must be at least 3 characters"
	case length(v) > 100:
		return "requester name must not exceed 100 characters"
	case !namePattern.MatchString(v):
		return "requester name may only contain letters, spaces, apostrophes and hyphens"
	}
	return ""
}

func validateRequesterPhone(v string) string {
	if strings.TrimSpace(v) == "" {
		return "phone number is required"
	}
	cleaned := phoneSeparators.ReplaceAllString(v, "")
	for _, p := range phonePatterns {
		if p.MatchString(cleaned) {
			return ""
		}
	}
	return "invalid phone number, use the French format (+33 or 0)"
}

func validateProviderReference(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return "provider reference is required"
	case length(v) < 3 || length(v) > 30:
		return "provider reference must be between 3 and 30 characters"
	case !referencePattern.MatchString(v):
		return "provider reference may only contain letters, digits, spaces, hyphens and underscores"
	}
	return ""
}

func validateAddress(label, v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return label + " is required"
	case length(v) < 5 || length(v) > 255:
		return label + " must be between 5 and 255 characters"
	case !addressPattern.MatchString(v):
		return label + " may only contain letters, digits, spaces, commas, periods, apostrophes and hyphens"
	}
	return ""
}

// Notes are optional.
func validateNotes(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return ""
	case length(v) > 255:
		return "notes must not exceed 255 characters"
	case length(v) < 3:
		return "notes must be at least 3 characters"
	}
	return ""
}

func validateMissionTypes(types []model.MissionType) string {
	if len(types) == 0 {
		return "at least one mission type must be selected"
	}
	for _, t := range types {
		if !model.KnownMissionType(t.Name) {
			return fmt.Sprintf("unknown mission type %q", t.Name)
		}
	}
	return ""
}

func validateVehicleMake(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return "vehicle make is required"
	case length(v) < 3 || length(v) > 50:
		return "vehicle make must be between 3 and 50 characters"
	case !makePattern.MatchString(v):
		return "vehicle make may only contain letters, spaces and hyphens"
	}
	return ""
}

func validateVehicleModel(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return "vehicle model is required"
	case length(v) < 3 || length(v) > 50:
		return "vehicle model must be between 3 and 50 characters"
	case !modelPattern.MatchString(v):
		return "vehicle model may only contain letters, digits, spaces and hyphens"
	}
	return ""
}

func validateVehiclePlate(v string) string {
	if strings.TrimSpace(v) == "" {
		return "license plate is required"
	}
	cleaned := plateSeparators.ReplaceAllString(strings.ToUpper(v), "")
	if plateCurrent.MatchString(cleaned) || plateLegacy.MatchString(cleaned) {
		return ""
	}
	return "invalid license plate (e.g. AB-123-CD or 123 ABC 45)"
}

// FormatPhoneDisplay groups a French number by pairs: "+33 1 23 45 67 89"
// or "01 23 45 67 89".  Anything else is returned unchanged.
func FormatPhoneDisplay(phone string) string {
	cleaned := phoneSeparators.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(cleaned, "+33") && len(cleaned) == 12:
		n := cleaned[3:]
		return fmt.Sprintf("+33 %s %s %s %s %s", n[:1], n[1:3], n[3:5], n[5:7], n[7:])
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10:
		return fmt.Sprintf("%s %s %s %s %s", cleaned[:2], cleaned[2:4], cleaned[4:6], cleaned[6:8], cleaned[8:])
	}
	return phone
}

// FormatVehiclePlate renders a plate as AB-123-CD (current series) or
// "123 ABC 45" (legacy series).  Unrecognised plates are returned unchanged.
func FormatVehiclePlate(plate string) string {
	cleaned := strings.ToUpper(plateNonAlnum.ReplaceAllString(plate, ""))
	if m := plateCurrent.FindStringSubmatch(cleaned); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	if m := plateLegacy.FindStringSubmatch(cleaned); m != nil {
		return m[1] + " " + m[2] + " " + m[3]
	}
	return plate
}
