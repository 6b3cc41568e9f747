package catalog

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*", "contract.admission", true},
		{"*", "x", true},

		{"contract.admission", "contract.admission", true},
		{"contract.admission", "contract.termination", false},
		{"contract.admission", "payroll.admission", false},

		{"payroll.*", "payroll.remuneration", true},
		{"payroll.*", "payroll.periodic-closure", true},
		{"payroll.*", "contract.admission", false},
		{"*.termination", "contract.termination", true},
		{"*.termination", "contract.admission", false},

		{"payroll.*", "payroll.monthly.remuneration", false},
		{"payroll", "payroll.remuneration", false},

		{"", "", true},
		{"a", "b", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_vs_"+tt.name, func(t *testing.T) {
			got := Match(tt.pattern, tt.name)
			if got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
			}
		})
	}
}
