package schema

import (
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{in: "uuid", want: Type{Kind: KindUUID}},
		{in: " String(256) ", want: Type{Kind: KindString, Length: 256}},
		{in: "string", want: Type{Kind: KindString}},
		{in: "decimal(18, 2)", want: Type{Kind: KindDecimal, Precision: 18, Scale: 2}},
		{in: "binary(64)", want: Type{Kind: KindBinary, Length: 64}},
		{in: "", wantErr: true},
		{in: "varchar(10)", wantErr: true},
		{in: "string(0)", wantErr: true},
		{in: "string(10", wantErr: true},
		{in: "decimal(2,4)", wantErr: true},
		{in: "decimal(10)", wantErr: true},
		{in: "int(11)", wantErr: true},
		{in: "string()", wantErr: true},
		{in: "decimal( )", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseType(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseType(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseType(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTypeStringRoundTrip(t *testing.T) {
	for _, s := range []string{"uuid", "string(450)", "decimal(18,2)", "text", "binary(16)"} {
		if got := MustType(s).String(); got != s {
			t.Errorf("MustType(%q).String() = %q", s, got)
		}
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   string
		want Action
	}{
		{"", NoAction},
		{"cascade", Cascade},
		{"CASCADE", Cascade},
		{"set-null", SetNull},
		{"SetNull", SetNull},
		{"SET NULL", SetNull},
		{"restrict", Restrict},
		{"no_action", NoAction},
		{"NoAction", NoAction},
	}

	for _, tt := range tests {
		got, err := ParseAction(tt.in)
		if err != nil {
			t.Errorf("ParseAction(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAction(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseAction("delete-everything"); err == nil {
		t.Error("expected error for unknown action")
	}
}
