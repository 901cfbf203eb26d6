package report

import (
	"docflow/session"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	PathDocumentReports = "/v1/document-reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func RegisterReportsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathDocumentReports, middleWares...)
	g.GET("", handleExport)
}

func handleExport(c *gin.Context) {
	f, err := ExportDocumentsFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		panic(err)
	}
	name := "documents-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	logrus.Debugf("report %s exported, %d bytes", name, buf.Len())
}
