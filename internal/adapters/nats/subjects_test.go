package natsadapter

import "testing"

func TestSubjects(t *testing.T) {
	cases := map[string]string{
		LocationSubject("phone-1"):     "geofence.location.phone-1",
		EventSubject("entered", "r-1"): "geofence.events.entered.r-1",
		RegionSubject("removed"):       "geofence.regions.removed",
		LocationSubject("a.b*c>d e"):   "geofence.location.a_b_c_d_e",
		EventSubject("exited", ""):     "geofence.events.exited._",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}
