package ipc

import (
	"encoding/json"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"time"
)

// requestTimeout bounds one request-socket round trip during seeding.
const requestTimeout = 2 * time.Second

// seed queries the running instance for its current keyboard layout and
// workspace set and translates the answers into the events the stream would
// have produced, so subscribers need only one code path. Each query is best
// effort; a failure leaves the affected widget on its placeholder until the
// first real notification.
func seed(dir string) []Event {
	devices, _ := request(dir, "j/devices")
	workspaces, _ := request(dir, "j/workspaces")
	active, _ := request(dir, "j/activeworkspace")
	return seedEvents(devices, workspaces, active)
}

// request runs one command against the request socket. The j/ prefix asks
// for JSON; the compositor answers and closes the connection.
func request(dir, cmd string) ([]byte, error) {
	conn, err := net.Dial("unix", filepath.Join(dir, ".socket.sock"))
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(requestTimeout))
	if _, err := conn.Write([]byte(cmd)); err != nil {
		return nil, err
	}
	return io.ReadAll(conn)
}

type keyboardInfo struct {
	Name         string `json:"name"`
	ActiveKeymap string `json:"active_keymap"`
	Main         bool   `json:"main"`
}

type deviceList struct {
	Keyboards []keyboardInfo `json:"keyboards"`
}

type workspaceInfo struct {
	ID int `json:"id"`
}

// seedEvents folds the three query answers into synthetic events. Malformed
// or empty answers contribute nothing.
func seedEvents(devices, workspaces, active []byte) []Event {
	var evs []Event

	var devs deviceList
	if json.Unmarshal(devices, &devs) == nil && len(devs.Keyboards) > 0 {
		kb := devs.Keyboards[0]
		for _, k := range devs.Keyboards {
			if k.Main {
				kb = k
				break
			}
		}
		evs = append(evs, Event{Name: "activelayout", Payload: kb.Name + "," + kb.ActiveKeymap})
	}

	var wss []workspaceInfo
	if json.Unmarshal(workspaces, &wss) == nil {
		for _, ws := range wss {
			evs = append(evs, Event{Name: "createworkspace", Payload: strconv.Itoa(ws.ID)})
		}
	}

	var aw workspaceInfo
	if json.Unmarshal(active, &aw) == nil && aw.ID != 0 {
		evs = append(evs, Event{Name: "workspace", Payload: strconv.Itoa(aw.ID)})
	}
	return evs
}
