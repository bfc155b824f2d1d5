package device

import (
	"fmt"
	"strings"

	"github.com/swoga/zyxel-webctl/model"
)

// option values of the speed selects on the port pages
var speedCodes = map[model.Speed]string{
	model.SpeedAuto:     "00000000",
	model.Speed10MHalf:  "00000006",
	model.Speed10MFull:  "00000007",
	model.Speed100MHalf: "00000004",
	model.Speed100MFull: "00000005",
	model.Speed1GFull:   "00000003",
}

// option values of the acceptable frame selects on the form pages
var frameCodes = map[model.FrameType]string{
	model.FrameAll:          "00000000",
	model.FrameTaggedOnly:   "00000001",
	model.FrameUntaggedOnly: "00000002",
}

// frametype values of the gs1900 port settings form
var gs1900FrameCodes = map[model.FrameType]string{
	model.FrameAll:          "0",
	model.FrameTaggedOnly:   "1",
	model.FrameUntaggedOnly: "2",
}

// gs1900 port settings table cells
var gs1900FrameLabels = map[string]model.FrameType{
	"all":       model.FrameAll,
	"tagonly":   model.FrameTaggedOnly,
	"untagonly": model.FrameUntaggedOnly,
}

var timezoneCodes = map[string]string{
	"UTC":   "00000018",
	"UTC+0": "00000018",
	"UTC-5": "00000013",
	"UTC-6": "00000012",
	"UTC-7": "00000011",
	"UTC-8": "00000010",
	"UTC+1": "00000019",
	"UTC+8": "00000020",
}

func speedCode(speed model.Speed) (string, error) {
	code, ok := speedCodes[speed]
	if !ok {
		return "", fmt.Errorf("unknown speed %q", speed)
	}
	return code, nil
}

func speedFromCode(code, label string) model.Speed {
	for speed, c := range speedCodes {
		if c == code {
			return speed
		}
	}
	return model.Speed(strings.ToLower(strings.TrimSpace(label)))
}

func frameCode(codes map[model.FrameType]string, frame model.FrameType) (string, error) {
	code, ok := codes[frame]
	if !ok {
		return "", fmt.Errorf("unknown acceptable frame type %q", frame)
	}
	return code, nil
}

func frameFromCode(codes map[model.FrameType]string, code string) model.FrameType {
	for frame, c := range codes {
		if c == code {
			return frame
		}
	}
	return model.FrameAll
}

// timezoneCode maps well known offsets, anything else is passed through as a raw option value.
func timezoneCode(tz string) string {
	if code, ok := timezoneCodes[strings.ToUpper(strings.TrimSpace(tz))]; ok {
		return code
	}
	return tz
}
