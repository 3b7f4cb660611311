// Package analysis extracts vibrational information from energy traces.
//
// A harmonic bond's potential energy oscillates at twice the bond's
// vibrational frequency, so the dominant peak of a potential energy
// spectrum locates the bond vibration:
//
//	sp, err := analysis.PowerSpectrum(potential, dt)
//	if err != nil {
//	    return err
//	}
//	f, _ := sp.Peak()
//	vib := f / 2
package analysis
