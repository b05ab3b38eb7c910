package usb

import "github.com/jbweber/vmtui/internal/logging"

var log = logging.ForComponent(logging.CompUSB)
