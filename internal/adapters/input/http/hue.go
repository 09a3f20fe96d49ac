package http

import (
	"encoding/json"
	"fmt"
	"homehub/internal/domain/model"
	"homehub/internal/domain/translator"
	"net/http"
	"strconv"
	"strings"

	"github.com/amimof/huego"
)

// Hue error types as returned by a real bridge.
const (
	hueErrResourceUnavailable = 3
	hueErrInvalidJSON         = 2
	hueErrParameterMissing    = 5
)

func (s *Server) handleDescription(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8" ?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
<specVersion>
<major>1</major>
<minor>0</minor>
</specVersion>
<URLBase>%s/</URLBase>
<device>
<deviceType>urn:schemas-upnp-org:device:Basic:1</deviceType>
<friendlyName>Philips hue (%s)</friendlyName>
<manufacturer>Royal Philips Electronics</manufacturer>
<manufacturerURL>http://www.philips.com</manufacturerURL>
<modelDescription>Philips hue Personal Wireless Lighting</modelDescription>
<modelName>Philips hue bridge 2012</modelName>
<modelNumber>929000226503</modelNumber>
<modelURL>http://www.meethue.com</modelURL>
<serialNumber>001788102201</serialNumber>
<UDN>uuid:2f402f80-da50-11e1-9b23-001788102201</UDN>
<presentationURL>admin</presentationURL>
</device>
</root>`, s.baseURL(), s.opts.Host)
}

// handleAPI serves the Hue bridge API used by LAN voice remotes. Any
// username is accepted.
func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if r.Method == http.MethodPost && parts[0] == "" {
		s.handleRegister(w, r)
		return
	}
	if parts[0] == "" {
		hueError(w, hueErrResourceUnavailable, path, "unauthorized user")
		return
	}

	subPath := parts[1:]
	switch {
	case len(subPath) == 0:
		s.handleFullState(w, r)
	case subPath[0] == "lights" && len(subPath) == 1:
		writeJSON(w, http.StatusOK, s.lights())
	case subPath[0] == "lights" && len(subPath) == 2:
		s.handleGetLight(w, r, subPath[1])
	case subPath[0] == "lights" && len(subPath) == 3 && subPath[2] == "state":
		s.handleSetLightState(w, r, subPath[1])
	case subPath[0] == "groups" && len(subPath) == 1:
		writeJSON(w, http.StatusOK, map[string]any{})
	default:
		hueError(w, hueErrResourceUnavailable, path, "resource, "+path+", not available")
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{{"success": map[string]string{"username": "admin"}}})
}

func (s *Server) handleFullState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"lights": s.lights(),
		"groups": map[string]any{},
		"config": map[string]any{
			"name":       "Philips hue",
			"swversion":  "01003542",
			"apiversion": "1.11.0",
			"mac":        "00:17:88:10:22:01",
			"bridgeid":   "001788FFFE102201",
			"modelid":    "BSB001",
			"ipaddress":  s.opts.Host,
		},
	})
}

// lights exposes every numbered device, keyed by its number.
func (s *Server) lights() map[string]*huego.Light {
	catalog := s.hub.Catalog()
	out := make(map[string]*huego.Light)
	for _, d := range s.hub.Devices() {
		spec, ok := catalog.Spec(d.ID)
		if !ok || spec.Number <= 0 {
			continue
		}
		out[strconv.Itoa(spec.Number)] = translator.Light(s.translatorFactory.GetTranslator(spec.Category), spec, d)
	}
	return out
}

func (s *Server) lightSpec(raw string) (model.DeviceSpec, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return model.DeviceSpec{}, false
	}
	return s.hub.Catalog().ByNumber(n)
}

func (s *Server) handleGetLight(w http.ResponseWriter, r *http.Request, num string) {
	spec, ok := s.lightSpec(num)
	if !ok {
		hueError(w, hueErrResourceUnavailable, "/lights/"+num, "resource, /lights/"+num+", not available")
		return
	}
	d, err := s.hub.Device(spec.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, translator.Light(s.translatorFactory.GetTranslator(spec.Category), spec, d))
}

func (s *Server) handleSetLightState(w http.ResponseWriter, r *http.Request, num string) {
	if !allowMethods(w, r, http.MethodPut) {
		return
	}
	address := "/lights/" + num + "/state"
	spec, ok := s.lightSpec(num)
	if !ok {
		hueError(w, hueErrResourceUnavailable, address, "resource, /lights/"+num+", not available")
		return
	}

	var stateUpdate map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&stateUpdate); err != nil {
		hueError(w, hueErrInvalidJSON, address, "body contains invalid json")
		return
	}
	var hueState huego.State
	raw, _ := json.Marshal(stateUpdate)
	if err := json.Unmarshal(raw, &hueState); err != nil {
		hueError(w, hueErrInvalidJSON, address, "body contains invalid json")
		return
	}

	_, hasOn := stateUpdate["on"]
	_, hasBri := stateUpdate["bri"]
	if !hasOn && !hasBri {
		if len(stateUpdate) == 0 {
			hueError(w, hueErrParameterMissing, address, "invalid/missing parameters in body")
			return
		}
		// brightness steps and colors do not change power
		s.hueSuccess(w, address, stateUpdate)
		return
	}
	if !hasOn {
		hueState.On = hueState.Bri > 0
	}

	action := s.translatorFactory.GetTranslator(spec.Category).ToAction(&hueState)
	if _, err := s.hub.Mutate(r.Context(), spec.ID, string(action), model.SourceRemote); err != nil {
		s.log.Warn().Err(err).Str("device", spec.ID).Msg("hue state update failed")
		writeError(w, err)
		return
	}
	s.hueSuccess(w, address, stateUpdate)
}

func (s *Server) hueSuccess(w http.ResponseWriter, address string, update map[string]json.RawMessage) {
	resp := []map[string]any{}
	for k, v := range update {
		resp = append(resp, map[string]any{
			"success": map[string]any{address + "/" + k: v},
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func hueError(w http.ResponseWriter, typ int, address, description string) {
	writeJSON(w, http.StatusOK, []map[string]any{{
		"error": map[string]any{"type": typ, "address": address, "description": description},
	}})
}
