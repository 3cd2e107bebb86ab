package plc

// Wire constants for the packaging-line PLC's ASCII line protocol.
// Commands are CR-terminated; replies are CRLF-terminated.
const (
	checkCommand  = "?K\r"
	checkResponse = "55"

	okResponse             = "OK"
	deviceErrorResponse    = "E0"
	commandErrorResponse   = "E1"

	monitorReadoutCommand = "MWR\r"
	timePreferenceCommand = "WRT "

	// dataLength is the number of space-separated fields in a monitor
	// readout reply; responseLength is its exact byte length once the
	// trailing CRLF has been stripped.
	dataLength     = 25
	responseLength = 149
)

// setMonitorCommand registers the fixed set of 25 data-memory registers
// this collector reads on every tick, in the exact order the PLC expects.
const setMonitorCommand = "MWS DM0.U DM50.U DM100.U DM102.U DM104.U DM106.U " +
	"DM10.U DM12.U DM14.U DM16.U DM18.U DM20.U " +
	"DM22.U DM24.U DM26.U DM28.U DM30.U DM32.U " +
	"DM34.U DM36.U DM38.U DM40.U DM42.U DM44.U " +
	"DM2.U\r"

// timePreferenceCommandBytes builds the optional clock-set command for the
// given wall-clock time, using the PLC's two-digit-year convention. weekday
// follows time.Weekday (0=Sunday).
func timePreferenceCommandBytes(year, month, day, hour, minute, second, weekday int) []byte {
	return []byte(timePreferenceCommand + formatClockFields(year, month, day, hour, minute, second, weekday) + "\r")
}
