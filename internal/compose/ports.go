package compose

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PortInfo is the structured form of one resolved port mapping.
type PortInfo struct {
	// HostPort is the published host port; "0" means dynamically assigned.
	HostPort string
	// ContainerPort is the port inside the container.
	ContainerPort string
	// Debug is true when this port matches the service's remote-debug
	// address. Derived once from environment inspection.
	Debug bool
}

// debugOptionsVar is the environment variable carrying JVM remote-debug
// options (an -agentlib:jdwp=...,address=host:port clause). Matched by
// prefix so suffixed variants are picked up too.
const debugOptionsVar = "JAVA_TOOL_OPTIONS"

// portAllocator tracks static host ports claimed across the services of one
// manifest.
type portAllocator struct {
	claimed map[string]string // host port -> owning service
}

func newPortAllocator() *portAllocator {
	return &portAllocator{claimed: make(map[string]string)}
}

// claim reserves a host port for a service. Returns false when another
// service already holds it.
func (a *portAllocator) claim(port, service string) bool {
	if owner, ok := a.claimed[port]; ok && owner != service {
		return false
	}
	a.claimed[port] = service
	return true
}

// resolvePorts expands ranged port declarations, optionally pins dynamic
// ports to static host ports, rewrites the ports node in place, and returns
// the structured PortInfo list plus any allocation warnings. Expanded
// entries are emitted before untouched ones; callers rely on set membership,
// not position.
func resolvePorts(service string, fields *yaml.Node, static bool, alloc *portAllocator) ([]PortInfo, []string, error) {
	debugPort := detectDebugPort(fields)

	node := mapGet(fields, "ports")
	if node == nil {
		return nil, nil, nil
	}
	node = resolveAlias(node)
	items, err := asSequence(node)
	if err != nil {
		return nil, nil, manifestErrorf(service, "ports", "%s", err)
	}

	var ranged, plain []string
	for _, item := range items {
		s, err := asString(item)
		if err != nil {
			return nil, nil, manifestErrorf(service, "ports", "%s", err)
		}
		if strings.Contains(s, "-") {
			ranged = append(ranged, s)
		} else {
			plain = append(plain, s)
		}
	}

	var mappings []string
	for _, r := range ranged {
		expanded, err := expandRange(r)
		if err != nil {
			return nil, nil, manifestErrorf(service, "ports", "%s", err)
		}
		mappings = append(mappings, expanded...)
	}
	mappings = append(mappings, plain...)

	var warnings []string
	if static {
		for i, m := range mappings {
			core, proto := splitProto(m)
			host, container, ok := strings.Cut(core, ":")
			if !ok {
				host, container = "", core
			}
			switch {
			case !ok || host == "0":
				if alloc.claim(container, service) {
					mappings[i] = joinProto(container+":"+container, proto)
				} else {
					mappings[i] = joinProto("0:"+container, proto)
					warnings = append(warnings, fmt.Sprintf(
						"host port %s already allocated, falling back to a dynamic port for service %q", container, service))
				}
			default:
				// Explicitly pinned host ports participate in collision
				// tracking so later services cannot claim them statically.
				alloc.claim(host, service)
			}
		}
	}

	content := make([]*yaml.Node, len(mappings))
	for i, m := range mappings {
		content[i] = newStringNode(m)
	}
	node.Content = content

	infos := make([]PortInfo, 0, len(mappings))
	for _, m := range mappings {
		core, _ := splitProto(m)
		host, container, ok := strings.Cut(core, ":")
		if !ok {
			host, container = "0", core
		}
		infos = append(infos, PortInfo{
			HostPort:      host,
			ContainerPort: container,
			Debug:         debugPort != "" && container == debugPort,
		})
	}
	return infos, warnings, nil
}

// expandRange expands one ranged port declaration into individual mappings.
// "8000-8002" becomes three single ports; "8000-8002:9000-9002" pairs the
// ranges offset by offset; a fixed container side repeats for every host
// offset. Unequal range spans are an error.
func expandRange(s string) ([]string, error) {
	hostSide, containerSide, hasContainer := strings.Cut(s, ":")

	hs, he, err := parseRange(hostSide)
	if err != nil {
		return nil, err
	}
	span := he - hs + 1

	if !hasContainer {
		out := make([]string, 0, span)
		for i := 0; i < span; i++ {
			out = append(out, strconv.Itoa(hs+i))
		}
		return out, nil
	}

	cs, ce, err := parseRange(containerSide)
	if err != nil {
		return nil, err
	}
	containerSpan := ce - cs + 1

	out := make([]string, 0, span)
	switch {
	case containerSpan == span:
		for i := 0; i < span; i++ {
			out = append(out, fmt.Sprintf("%d:%d", hs+i, cs+i))
		}
	case containerSpan == 1:
		for i := 0; i < span; i++ {
			out = append(out, fmt.Sprintf("%d:%d", hs+i, cs))
		}
	default:
		return nil, fmt.Errorf("port ranges %s and %s differ in length", hostSide, containerSide)
	}
	return out, nil
}

// parseRange parses "8000" or "8000-8002" into inclusive bounds.
func parseRange(s string) (int, int, error) {
	from, to, isRange := strings.Cut(s, "-")
	start, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid port %q", s)
	}
	if !isRange {
		return start, start, nil
	}
	end, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil || end < start {
		return 0, 0, fmt.Errorf("invalid port range %q", s)
	}
	return start, end, nil
}

func splitProto(m string) (core, proto string) {
	core, proto, _ = strings.Cut(m, "/")
	return core, proto
}

func joinProto(core, proto string) string {
	if proto == "" {
		return core
	}
	return core + "/" + proto
}

// detectDebugPort inspects the service's environment for a JVM debug-options
// entry and extracts the port from its address clause. Returns "" when the
// service exposes no debug address with a host:port pair.
func detectDebugPort(fields *yaml.Node) string {
	env := mapGet(fields, "environment")
	if env == nil {
		return ""
	}
	env = resolveAlias(env)

	switch env.Kind {
	case yaml.MappingNode:
		var port string
		_ = eachPair(env, func(key string, value *yaml.Node) error {
			if port == "" && strings.HasPrefix(key, debugOptionsVar) {
				if v, err := asString(value); err == nil {
					port = parseDebugAddress(v)
				}
			}
			return nil
		})
		return port
	case yaml.SequenceNode:
		for _, item := range env.Content {
			s, err := asString(item)
			if err != nil {
				continue
			}
			key, value, ok := strings.Cut(s, "=")
			if !ok || !strings.HasPrefix(key, debugOptionsVar) {
				continue
			}
			if port := parseDebugAddress(value); port != "" {
				return port
			}
		}
	}
	return ""
}

// parseDebugAddress extracts the port from an "address=" clause. Only a
// host:port pair counts; a bare port means the debugger is not reachable
// from the host and is ignored.
func parseDebugAddress(opts string) string {
	i := strings.Index(opts, "address=")
	if i < 0 {
		return ""
	}
	addr := opts[i+len("address="):]
	if j := strings.IndexAny(addr, ", \t"); j >= 0 {
		addr = addr[:j]
	}
	if j := strings.LastIndex(addr, ":"); j >= 0 {
		return addr[j+1:]
	}
	return ""
}
