package libvirt

import "github.com/jbweber/vmtui/internal/logging"

var log = logging.ForComponent(logging.CompHypervisor)
