package cdm

import "fmt"

// Command is the first payload byte of a request.
type Command byte

const (
	CmdInitialize          Command = 0x30
	CmdReadStatus          Command = 0x31
	CmdDiagnostic          Command = 0x32
	CmdDispenseBill        Command = 0x33
	CmdLastStatus          Command = 0x34
	CmdConfigurationStatus Command = 0x35
	CmdSetBillThickness    Command = 0x36
	CmdGetBillThickness    Command = 0x37
	CmdSetBillSize         Command = 0x38
	CmdGetBillSize         Command = 0x39
	CmdMultiCassDispense   Command = 0x3A
	CmdLearnBillParameter  Command = 0x40
	CmdCassStatusCheck     Command = 0x41
	CmdChangedCassBox      Command = 0x42
	CmdRejectLog           Command = 0x43
	CmdSensorRead          Command = 0x44
	CmdDispenseStateCheck  Command = 0x45
	CmdTotalCounts         Command = 0x46
)

var commandNames = map[Command]string{
	CmdInitialize:          "initialize",
	CmdReadStatus:          "read_status",
	CmdDiagnostic:          "diagnostic",
	CmdDispenseBill:        "dispense_bill",
	CmdLastStatus:          "last_status",
	CmdConfigurationStatus: "configuration_status",
	CmdSetBillThickness:    "set_bill_thickness",
	CmdGetBillThickness:    "get_bill_thickness",
	CmdSetBillSize:         "set_bill_size",
	CmdGetBillSize:         "get_bill_size",
	CmdMultiCassDispense:   "multi_cass_dispense",
	CmdLearnBillParameter:  "learn_bill_parameter",
	CmdCassStatusCheck:     "cass_status_check",
	CmdChangedCassBox:      "changed_cass_box",
	CmdRejectLog:           "reject_log",
	CmdSensorRead:          "sensor_read",
	CmdDispenseStateCheck:  "dispense_state_check",
	CmdTotalCounts:         "total_counts",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(0x%02X)", byte(c))
}

// LookupCommand resolves a command by its name as printed by String.
func LookupCommand(name string) (Command, bool) {
	for c, n := range commandNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// StatusCode is the device error/status byte of a response.
type StatusCode byte

const (
	StatusNormal                StatusCode = 0x30
	StatusSRAMError             StatusCode = 0x31
	StatusDiverterSolenoidError StatusCode = 0x32
	StatusSensorError           StatusCode = 0x33
	StatusDiverterSwitchError   StatusCode = 0x34
	StatusEncoderMotorError     StatusCode = 0x35
	StatusThickRefJam           StatusCode = 0x42
	StatusExitJam               StatusCode = 0x43
	StatusRejectError5Times     StatusCode = 0x44
	StatusPickUpSolenoidError   StatusCode = 0x45
	StatusInitialThickValue     StatusCode = 0x46
	StatusNoFeed                StatusCode = 0x47
	StatusCassCommError1        StatusCode = 0x48
	StatusCassCommError2        StatusCode = 0x49
	StatusCassNoneExist         StatusCode = 0x4A
	StatusBillClassError        StatusCode = 0x4B
	StatusEEPFail               StatusCode = 0x4C
	StatusMotorCPUFail          StatusCode = 0x4D
	StatusBillCountError        StatusCode = 0x4E
	StatusSensorDetectError     StatusCode = 0x4F
	StatusShutdownError         StatusCode = 0x50
	StatusDivGateJam            StatusCode = 0x51
	StatusIllegalBill           StatusCode = 0x57
)

// Per-cassette code ranges; the cassette number is code - base (+1 where noted).
const (
	loadingJamBase      StatusCode = 0x36 // cassettes 1..6: 0x36..0x3B
	middleJamBase       StatusCode = 0x3C // 0x3C..0x41
	pickUpSolenoidBase  StatusCode = 0x52 // cassettes 2..6: 0x52..0x56
	billClassErrorBase  StatusCode = 0x58 // 0x58..0x5D
	cassetteMissingBase StatusCode = 0x5E // 0x5E..0x63
	cassetteEmptyBase   StatusCode = 0x64 // 0x64..0x69
)

var statusNames = map[StatusCode]string{
	StatusNormal:                "normal",
	StatusSRAMError:             "sram error",
	StatusDiverterSolenoidError: "diverter solenoid error",
	StatusSensorError:           "sensor error",
	StatusDiverterSwitchError:   "diverter switch error",
	StatusEncoderMotorError:     "encoder/motor error",
	StatusThickRefJam:           "jam at thickness sensor",
	StatusExitJam:               "exit jam",
	StatusRejectError5Times:     "5 consecutive rejects",
	StatusPickUpSolenoidError:   "pick-up solenoid error",
	StatusInitialThickValue:     "wrong initial thickness value",
	StatusNoFeed:                "no feed",
	StatusCassCommError1:        "host communication error",
	StatusCassCommError2:        "cassette board communication error",
	StatusCassNoneExist:         "cassette does not exist",
	StatusBillClassError:        "cassette placement or bill class sensor error",
	StatusEEPFail:               "eeprom failure",
	StatusMotorCPUFail:          "motor cpu failure",
	StatusBillCountError:        "bill count error",
	StatusSensorDetectError:     "sensor detection error",
	StatusShutdownError:         "blackout process",
	StatusDivGateJam:            "jam at diverter gate",
	StatusIllegalBill:           "illegal bill parameters",
}

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	switch {
	case s >= loadingJamBase && s < loadingJamBase+6:
		return fmt.Sprintf("loading jam cassette %d", s-loadingJamBase+1)
	case s >= middleJamBase && s < middleJamBase+6:
		return fmt.Sprintf("middle jam cassette %d", s-middleJamBase+1)
	case s >= pickUpSolenoidBase && s < pickUpSolenoidBase+5:
		return fmt.Sprintf("pick-up solenoid error cassette %d", s-pickUpSolenoidBase+2)
	case s >= billClassErrorBase && s < billClassErrorBase+6:
		return fmt.Sprintf("bill class error cassette %d", s-billClassErrorBase+1)
	case s >= cassetteMissingBase && s < cassetteMissingBase+6:
		return fmt.Sprintf("cassette %d missing", s-cassetteMissingBase+1)
	case s >= cassetteEmptyBase && s < cassetteEmptyBase+6:
		return fmt.Sprintf("cassette %d empty", s-cassetteEmptyBase+1)
	}
	return fmt.Sprintf("unknown status 0x%02X", byte(s))
}

// OK reports whether s is the normal status.
func (s StatusCode) OK() bool {
	return s == StatusNormal
}

// Cassette returns the 1-based cassette a per-cassette status refers to.
func (s StatusCode) Cassette() (int, bool) {
	switch {
	case s >= loadingJamBase && s < loadingJamBase+6:
		return int(s-loadingJamBase) + 1, true
	case s >= middleJamBase && s < middleJamBase+6:
		return int(s-middleJamBase) + 1, true
	case s >= pickUpSolenoidBase && s < pickUpSolenoidBase+5:
		return int(s-pickUpSolenoidBase) + 2, true
	case s >= billClassErrorBase && s < billClassErrorBase+6:
		return int(s-billClassErrorBase) + 1, true
	case s >= cassetteMissingBase && s < cassetteMissingBase+6:
		return int(s-cassetteMissingBase) + 1, true
	case s >= cassetteEmptyBase && s < cassetteEmptyBase+6:
		return int(s-cassetteEmptyBase) + 1, true
	}
	return 0, false
}

// RejectReason is a bit set describing why bills were diverted.
type RejectReason byte

const (
	RejectLengthLong  RejectReason = 0x01
	RejectDouble      RejectReason = 0x02
	RejectSkew        RejectReason = 0x04
	RejectNear        RejectReason = 0x08
	RejectMore        RejectReason = 0x10
	RejectReserve     RejectReason = 0x20
	RejectLengthShort RejectReason = 0x40
	RejectWidth       RejectReason = 0x80
)

var rejectNames = []struct {
	bit  RejectReason
	name string
}{
	{RejectLengthLong, "too long"},
	{RejectDouble, "double"},
	{RejectSkew, "skew"},
	{RejectNear, "too close"},
	{RejectMore, "more"},
	{RejectReserve, "reserve"},
	{RejectLengthShort, "too short"},
	{RejectWidth, "too wide"},
}

// Reasons lists the names of the set bits, lowest bit first.
func (r RejectReason) Reasons() []string {
	out := []string{}
	for _, rn := range rejectNames {
		if r&rn.bit != 0 {
			out = append(out, rn.name)
		}
	}
	return out
}
