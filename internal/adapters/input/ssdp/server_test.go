package ssdp

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	search := "M-SEARCH * HTTP/1.1\r\nHOST: 239.255.255.250:1900\r\nMAN: \"ssdp:discover\"\r\nMX: 3\r\nST: %s\r\n\r\n"

	for _, st := range []string{"urn:schemas-upnp-org:device:basic:1", "upnp:rootdevice", "ssdp:all", "urn:Schemas-Upnp-Org:Device:Basic:1"} {
		assert.True(t, Matches(fmt.Sprintf(search, st)), st)
	}
	assert.False(t, Matches(fmt.Sprintf(search, "urn:dial-multiscreen-org:service:dial:1")))
	assert.False(t, Matches("NOTIFY * HTTP/1.1\r\nNT: upnp:rootdevice\r\n\r\n"))
}

func TestResponse(t *testing.T) {
	resp := Response("192.168.1.20", 8080)

	assert.Contains(t, resp, "LOCATION: http://192.168.1.20:8080/description.xml\r\n")
	assert.Contains(t, resp, "ST: urn:schemas-upnp-org:device:basic:1\r\n")
	assert.True(t, strings.HasSuffix(resp, "\r\n\r\n"))
}
