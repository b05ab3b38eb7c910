package libvirt

import (
	"fmt"
	"sync"

	"github.com/digitalocean/go-libvirt"
)

// mockRPC is a mock implementation of the rpc interface for testing.
type mockRPC struct {
	mu sync.Mutex

	// Configurable behavior
	libVersion         uint64
	domains            []string
	domainGetStateFunc func(dom libvirt.Domain) (int32, int32, error)
	managedSaveImage   int32
	domainXML          string
	domainRequestErr   error

	// Call tracking
	disconnectCalls    int
	lookupCalls        []string
	requests           []string
	attachCalls        []attachCall
	undefineFlags      []libvirt.DomainUndefineFlagsValues
	managedSaveQueries int
}

type attachCall struct {
	op    string
	dom   string
	xml   string
	flags uint32
}

func newMockRPC() *mockRPC {
	m := &mockRPC{domains: []string{"test-vm"}}
	m.domainGetStateFunc = func(dom libvirt.Domain) (int32, int32, error) {
		return 1, 1, nil
	}
	return m
}

func (m *mockRPC) record(op string, dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, op+":"+dom.Name)
	return m.domainRequestErr
}

func (m *mockRPC) Disconnect() error {
	m.disconnectCalls++
	return nil
}

func (m *mockRPC) ConnectGetLibVersion() (uint64, error) {
	return m.libVersion, nil
}

func (m *mockRPC) ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
	var out []libvirt.Domain
	for _, name := range m.domains {
		out = append(out, libvirt.Domain{Name: name})
	}
	return out, uint32(len(out)), nil
}

func (m *mockRPC) DomainLookupByName(name string) (libvirt.Domain, error) {
	m.mu.Lock()
	m.lookupCalls = append(m.lookupCalls, name)
	m.mu.Unlock()

	for _, d := range m.domains {
		if d == name {
			return libvirt.Domain{Name: name}, nil
		}
	}
	return libvirt.Domain{}, fmt.Errorf("Domain not found: no domain with matching name '%s'", name)
}

func (m *mockRPC) DomainGetState(dom libvirt.Domain, flags uint32) (int32, int32, error) {
	return m.domainGetStateFunc(dom)
}

func (m *mockRPC) DomainHasManagedSaveImage(dom libvirt.Domain, flags uint32) (int32, error) {
	m.managedSaveQueries++
	return m.managedSaveImage, nil
}

func (m *mockRPC) DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
	return m.domainXML, nil
}

func (m *mockRPC) DomainCreate(dom libvirt.Domain) error  { return m.record("create", dom) }
func (m *mockRPC) DomainSuspend(dom libvirt.Domain) error { return m.record("suspend", dom) }
func (m *mockRPC) DomainResume(dom libvirt.Domain) error  { return m.record("resume", dom) }
func (m *mockRPC) DomainDestroy(dom libvirt.Domain) error { return m.record("destroy", dom) }

func (m *mockRPC) DomainManagedSave(dom libvirt.Domain, flags uint32) error {
	return m.record("managedsave", dom)
}

func (m *mockRPC) DomainUndefineFlags(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error {
	m.mu.Lock()
	m.undefineFlags = append(m.undefineFlags, flags)
	m.mu.Unlock()
	return m.record("undefine", dom)
}

func (m *mockRPC) DomainAttachDeviceFlags(dom libvirt.Domain, xml string, flags uint32) error {
	m.mu.Lock()
	m.attachCalls = append(m.attachCalls, attachCall{op: "attach", dom: dom.Name, xml: xml, flags: flags})
	m.mu.Unlock()
	return m.record("attach", dom)
}

func (m *mockRPC) DomainDetachDeviceFlags(dom libvirt.Domain, xml string, flags uint32) error {
	m.mu.Lock()
	m.attachCalls = append(m.attachCalls, attachCall{op: "detach", dom: dom.Name, xml: xml, flags: flags})
	m.mu.Unlock()
	return m.record("detach", dom)
}
