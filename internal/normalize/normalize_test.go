package normalize

import "testing"

func TestPhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"formatted with country code 7", "+7 (912) 345-67-89", "9123456789"},
		{"country code 8", "8 912 345 67 89", "9123456789"},
		{"eleven digits starting with 7", "79123456789", "9123456789"},
		{"ten digits unchanged", "9123456789", "9123456789"},
		{"eleven digits starting with 9 kept", "99123456789", "99123456789"},
		{"short number passes through", "12345", "12345"},
		{"no digits", "call me", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Phone(tt.in); got != tt.want {
				t.Errorf("Phone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPhoneIdempotent(t *testing.T) {
	inputs := []string{"+7 (912) 345-67-89", "89123456789", "9123456789"}
	for _, in := range inputs {
		once := Phone(in)
		if twice := Phone(once); twice != once {
			t.Errorf("Phone not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		name                string
		last, first, middle string
		want                string
	}{
		{"full name", "Иванов", "Пётр", "Сергеевич", "Иванов Пётр Сергеевич"},
		{"no middle", "Ivanov", "Petr", "", "Ivanov Petr"},
		{"only last", "Иванов", "", "", "Иванов"},
		{"only middle", "", "", "Сергеевич", "Сергеевич"},
		{"blank parts trimmed", " Иванов ", "  ", "\t", "Иванов"},
		{"all empty", "", "", "", UnknownName},
		{"all blank", "  ", " ", "   ", UnknownName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.last, tt.first, tt.middle); got != tt.want {
				t.Errorf("Name(%q, %q, %q) = %q, want %q", tt.last, tt.first, tt.middle, got, tt.want)
			}
		})
	}
}
