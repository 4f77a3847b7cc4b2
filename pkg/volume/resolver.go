package volume

import "net"

var defaultResolver Resolver = net.DefaultResolver
