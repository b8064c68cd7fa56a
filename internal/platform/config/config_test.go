package config

import "testing"

func TestParseMembers(t *testing.T) {
	members, err := parseMembers(" alice:40, bob:35 ,carol:25 ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	if members[0].Account != "alice" || members[0].Weight != 40 {
		t.Fatalf("unexpected first member: %+v", members[0])
	}
	if members[2].Account != "carol" || members[2].Weight != 25 {
		t.Fatalf("unexpected last member: %+v", members[2])
	}
}

func TestParseMembersEmpty(t *testing.T) {
	members, err := parseMembers("")
	if err != nil || members != nil {
		t.Fatalf("expected empty result, got %v (%v)", members, err)
	}
}

func TestParseMembersMalformed(t *testing.T) {
	if _, err := parseMembers("alice"); err == nil {
		t.Fatal("expected error for missing weight")
	}
	if _, err := parseMembers("alice:many"); err == nil {
		t.Fatal("expected error for non-numeric weight")
	}
}
