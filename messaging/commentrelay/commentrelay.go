package commentrelay

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"

	"whistlevault/intake/reports"
	"whistlevault/whistlevault"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = pongWait / 2

	// Maximum message size allowed from peer.
	maxMessageSize = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocket wraps a connection with a write lock so the broadcaster and the
// ping loop never interleave frames.
type WebSocket struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

func (ws *WebSocket) WriteJSON(v interface{}) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	return ws.conn.WriteJSON(v)
}

func (ws *WebSocket) WriteMessage(t int, b []byte) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	return ws.conn.WriteMessage(t, b)
}

// rooms maps a report id to the sockets subscribed to its comment thread.
// Membership lives only here; a socket drops out of every room when its read
// loop exits.
var rooms = make(map[string]map[*WebSocket]struct{})
var roomsMutex = sync.Mutex{}

func joinRoom(reportID string, ws *WebSocket) {
	roomsMutex.Lock()
	defer roomsMutex.Unlock()
	members, ok := rooms[reportID]
	if !ok {
		members = make(map[*WebSocket]struct{})
		rooms[reportID] = members
	}
	members[ws] = struct{}{}
}

func dropSocket(ws *WebSocket) {
	roomsMutex.Lock()
	defer roomsMutex.Unlock()
	for reportID, members := range rooms {
		delete(members, ws)
		if len(members) == 0 {
			delete(rooms, reportID)
		}
	}
}

// broadcast sends a frame to every current member of the room, sender
// included. Append and broadcast are serialized by the caller, so all members
// of a room observe the same comment order.
func broadcast(reportID string, frame interface{}) {
	roomsMutex.Lock()
	defer roomsMutex.Unlock()
	for member := range rooms[reportID] {
		err := member.WriteJSON(frame)
		if err != nil {
			whistlevault.LogCLI(err.Error(), 3)
		}
	}
}

// sendMutex serializes append+broadcast pairs so that the order committed to
// the store is the order every subscriber sees.
var sendMutex = sync.Mutex{}

type receiveFrame struct {
	Type    string          `json:"type"`
	Comment reports.Comment `json:"comment"`
}

// HandleWebsocket handles comment-thread connections from the frontend.
//
// Inbound frames: {"type":"joinRoom","concernId":...} and
// {"type":"sendMessage","concernId":...,"message":...,"sender":...}.
// Outbound: {"type":"receiveMessage","comment":{...}}.
func HandleWebsocket() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			whistlevault.LogCLI("failed to upgrade websocket", 3)
			return
		}
		ticker := time.NewTicker(pingPeriod)
		ws := &WebSocket{conn: conn}

		// reader
		go func() {
			defer func() {
				ticker.Stop()
				dropSocket(ws)
				conn.Close()
			}()

			conn.SetReadLimit(maxMessageSize)
			conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				conn.SetReadDeadline(time.Now().Add(pongWait))
				return nil
			})
			for {
				typ, message, err := conn.ReadMessage()
				if err != nil {
					if websocket.IsUnexpectedCloseError(
						err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
						whistlevault.LogCLI("unexpected close of websocket", 3)
					}
					break
				}
				if typ == websocket.PingMessage {
					ws.WriteMessage(websocket.PongMessage, nil)
					continue
				}
				// Frames are handled inline, in arrival order, so a client's
				// join always takes effect before its first send.
				handleFrame(ws, message)
			}
		}()

		// writer
		go func() {
			defer func() {
				ticker.Stop()
				conn.Close()
			}()
			for {
				select {
				case <-ticker.C:
					err := ws.WriteMessage(websocket.PingMessage, nil)
					if err != nil {
						whistlevault.LogCLI("couldn't ping, exterminating socket", 3)
						return
					}
				}
			}
		}()
	}
}

func handleFrame(ws *WebSocket, message []byte) {
	// Frontends are sloppy about types, so fields are coerced rather than
	// decoded strictly.
	var request map[string]interface{}
	if err := json.Unmarshal(message, &request); err != nil {
		// stop silently
		return
	}
	switch cast.ToString(request["type"]) {
	case "joinRoom":
		reportID := cast.ToString(request["concernId"])
		if reportID == "" {
			return
		}
		joinRoom(reportID, ws)
		// replay existing comments, in original order, to the joiner only
		if comments, ok := reports.Comments(reportID); ok {
			for _, comment := range comments {
				err := ws.WriteJSON(receiveFrame{Type: "receiveMessage", Comment: comment})
				if err != nil {
					whistlevault.LogCLI(err.Error(), 3)
					return
				}
			}
		}
	case "sendMessage":
		reportID := cast.ToString(request["concernId"])
		text := cast.ToString(request["message"])
		sender := cast.ToString(request["sender"])
		sendMutex.Lock()
		defer sendMutex.Unlock()
		comment, ok := reports.AppendComment(reportID, text, sender)
		if !ok {
			// nothing is surfaced to the sender, but leave a trace
			whistlevault.LogCLI("message for unknown report "+reportID+" dropped", 2)
			return
		}
		broadcast(reportID, receiveFrame{Type: "receiveMessage", Comment: comment})
	default:
		whistlevault.LogCLI("unknown websocket frame type", 3)
	}
}
