package classify

import (
	"testing"

	"github.com/pricebot-pl/internal/listing"
)

func intp(n int) *int { return &n }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		owners   *int
		premises string
		want     Class
	}{
		{"absent owner count", nil, "lokal mieszkalny", Unknown},
		{"zero owners means not stated", intp(0), "lokal mieszkalny", Unknown},
		{"negative owner count degrades to unknown", intp(-1), "", Unknown},
		{"single owner residential unit", intp(1), "LOKAL MIESZKALNY", SingleOwnerResidentialUnit},
		{"single owner residential unit with diacritic-free tag", intp(1), "Lokal mieszkalny", SingleOwnerResidentialUnit},
		{"single owner other premises", intp(1), "lokal użytkowy", SingleOwner},
		{"single owner no premises tag", intp(1), "", SingleOwner},
		{"two owners", intp(2), "lokal mieszkalny", MultiOwner},
		{"three owners any category", intp(3), "grunt", MultiOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := listing.RawRecord{OwnerCount: tt.owners, Premises: tt.premises}
			if got := Classify(rec); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}
