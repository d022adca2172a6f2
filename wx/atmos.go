// wx/atmos.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"github.com/vice-aman/aman/math"
)

// International Standard Atmosphere constants.
const (
	P0        = 101325.0 // sea level pressure, Pa
	T0        = 288.15   // sea level temperature, K
	LapseRate = 0.0065   // troposphere lapse rate, K/m
	R         = 287.05   // specific gas constant for dry air, J/(kg K)
	G0        = 9.80665  // standard gravity, m/s^2
	Gamma     = 1.4      // ratio of specific heats for air

	// ISA sea level density, kg/m^3.
	Rho0 = P0 / (R * T0)

	FeetToMeters           = 0.3048
	MetersPerSecondToKnots = 1.943844
	CelsiusToKelvin        = 273.15

	tropopauseTempC = -56.5
)

// ISATemperature returns the standard atmosphere temperature in Celsius
// at the given altitude in feet.
func ISATemperature(alt float32) float32 {
	t := 15 - LapseRate*alt*FeetToMeters
	return max(t, tropopauseTempC)
}

// Density returns the air density in kg/m^3 at the given pressure
// altitude (feet) and temperature (Celsius): ISA pressure at that
// altitude divided by R times the actual temperature.
func Density(alt, tempC float32) float32 {
	h := alt * FeetToMeters
	ratio := max(1-LapseRate*h/T0, 1e-3) // stay defined far above the tropopause
	p := P0 * math.Pow(ratio, G0/(R*LapseRate))
	t := max(tempC+CelsiusToKelvin, 1)
	return p / (R * t)
}

// IASToTAS converts indicated airspeed to true airspeed (both knots).
func IASToTAS(ias, alt, tempC float32) float32 {
	return ias * math.Sqrt(Rho0/Density(alt, tempC))
}

// TASToIAS converts true airspeed to indicated airspeed (both knots).
func TASToIAS(tas, alt, tempC float32) float32 {
	return tas * math.Sqrt(Density(alt, tempC)/Rho0)
}

// SpeedOfSound returns the local speed of sound in knots for the given
// temperature in Celsius.
func SpeedOfSound(tempC float32) float32 {
	t := max(tempC+CelsiusToKelvin, 1)
	return math.Sqrt(Gamma*R*t) * MetersPerSecondToKnots
}

func MachToTAS(mach, tempC float32) float32 {
	return mach * SpeedOfSound(tempC)
}

// MachToIAS converts a Mach number to indicated airspeed at the given
// altitude and temperature.
func MachToIAS(mach, alt, tempC float32) float32 {
	return TASToIAS(MachToTAS(mach, tempC), alt, tempC)
}
