package service

import (
	"regexp"
	"strings"

	"seatbooking/internal/domain"

	"github.com/google/uuid"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?\d{7,15}$`)
	// floor-T<table>-S<seat>, e.g. 1-T4-S2
	seatPattern = regexp.MustCompile(`^\d+-T\d+-S\d+$`)
)

func parseID(id, what string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", domain.InvalidIDf("Invalid %s ID", what)
	}
	return parsed.String(), nil
}

func normalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
}

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func validPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

func validSeatID(seat string) bool {
	return seatPattern.MatchString(seat)
}

// validateSeats checks that selected seats are well formed, unique and match
// the requested party size.
func validateSeats(seats []string, numberOfSeats int) ([]string, error) {
	if len(seats) == 0 {
		return []string{}, nil
	}
	out := make([]string, 0, len(seats))
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		s = strings.TrimSpace(s)
		if !validSeatID(s) {
			return nil, domain.Validationf("Invalid seat ID %q", s)
		}
		if _, dup := seen[s]; dup {
			return nil, domain.Validationf("Seat %s selected more than once", s)
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) != numberOfSeats {
		return nil, domain.Validationf("Selected %d seats but numberOfSeats is %d", len(out), numberOfSeats)
	}
	return out, nil
}
