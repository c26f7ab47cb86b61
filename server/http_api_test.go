package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	log "gopkg.in/inconshreveable/log15.v2"

	"github.com/ts2/ts2-interlock/simulation"
)

func resetServerState() {
	logger = log.New()
	logger.SetHandler(log.DiscardHandler())
	ctrl = newTopologyController()
}

func TestServeTrainAdmitShape(t *testing.T) {
	Convey("Given a fresh controller", t, func() {
		resetServerState()

		Convey("POST /api/trains with a valid body admits the train", func() {
			body, _ := json.Marshal(map[string]interface{}{
				"identifier":  "F1",
				"entry":       3,
				"destination": 11,
			})
			req := httptest.NewRequest(http.MethodPost, "/api/trains", bytes.NewReader(body))
			w := httptest.NewRecorder()
			serveTrainAdmit(w, req)

			So(w.Code, ShouldEqual, http.StatusCreated)

			pos, err := ctrl.Train("F1")
			So(err, ShouldBeNil)
			So(pos, ShouldEqual, simulation.Section(3))
		})

		Convey("POST /api/trains with a malformed body is a 400", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/trains", bytes.NewReader([]byte("not json")))
			w := httptest.NewRecorder()
			serveTrainAdmit(w, req)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET is rejected with 405", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/trains", nil)
			w := httptest.NewRecorder()
			serveTrainAdmit(w, req)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServeSectionOccupantShape(t *testing.T) {
	Convey("Given a controller with a train admitted at section 5", t, func() {
		resetServerState()
		So(ctrl.Admit("P1", 5, 9), ShouldBeNil)

		Convey("GET /api/sections/5 reports the occupant", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/sections/5", nil)
			w := httptest.NewRecorder()
			serveSectionOccupant(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			var resp map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp["occupant"], ShouldEqual, "P1")
		})

		Convey("GET /api/sections/0 is an argument error surfaced as 400", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/sections/0", nil)
			w := httptest.NewRecorder()
			serveSectionOccupant(w, req)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServeTickAndForecastShape(t *testing.T) {
	Convey("Given F1 admitted at 3 bound for 11", t, func() {
		resetServerState()
		So(ctrl.Admit("F1", 3, 11), ShouldBeNil)

		Convey("GET /api/forecast previews without mutating position", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/forecast?candidates=F1", nil)
			w := httptest.NewRecorder()
			serveForecast(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)

			pos, _ := ctrl.Train("F1")
			So(pos, ShouldEqual, simulation.Section(3))
		})

		Convey("POST /api/tick advances the train and reports the count", func() {
			body, _ := json.Marshal([]string{"F1"})
			req := httptest.NewRequest(http.MethodPost, "/api/tick", bytes.NewReader(body))
			w := httptest.NewRecorder()
			serveTick(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			var resp map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp["advanced"], ShouldEqual, float64(1))

			pos, _ := ctrl.Train("F1")
			So(pos, ShouldEqual, simulation.Section(7))
		})
	})
}

func TestServeControllerRestartShape(t *testing.T) {
	Convey("Given a controller with a train admitted", t, func() {
		resetServerState()
		So(ctrl.Admit("F1", 3, 11), ShouldBeNil)

		Convey("POST /api/simulation/restart replaces the controller with an empty one", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/simulation/restart", nil)
			w := httptest.NewRecorder()
			serveControllerRestart(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)

			_, err := ctrl.Train("F1")
			So(err, ShouldNotBeNil)
		})
	})
}
