package sifting

// Calibration periods, in seconds, of the two DM tolerance points.
const (
	dmCalibrationShortPeriod = 0.010
	dmCalibrationLongPeriod  = 1.000
)

// DMTolerance interpolates the tolerated DM width linearly in period between
// the widths calibrated at 10 ms and at 1000 ms.
type DMTolerance struct {
	Slope     float64 // pc/cc per second of period
	Intercept float64 // pc/cc
}

// NewDMTolerance builds the interpolation from the DM widths tolerated at
// 10 ms and 1000 ms.
func NewDMTolerance(cut10, cut1000 float64) DMTolerance {
	slope := (cut1000 - cut10) / (dmCalibrationLongPeriod - dmCalibrationShortPeriod)
	return DMTolerance{
		Slope:     slope,
		Intercept: cut10 - slope*dmCalibrationShortPeriod,
	}
}

// At returns the tolerated DM width in pc/cc for the given period.
func (t DMTolerance) At(period float64) float64 {
	return t.Intercept + t.Slope*period
}
