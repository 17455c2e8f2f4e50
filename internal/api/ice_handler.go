package api

import (
	"net/http"

	"github.com/pion/webrtc/v3"
)

type ICEServersResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

// ICEServersHandler tells browsers which STUN/TURN servers to use.
func ICEServersHandler(servers []webrtc.ICEServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusOK, ICEServersResponse{ICEServers: servers})
	}
}
