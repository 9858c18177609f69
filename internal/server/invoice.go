package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetInvoice(c *gin.Context) {
	invoiceID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	view, err := s.invoiceSvc.GetInvoice(c.Request.Context(), credentialFrom(c), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": view})
}

func (s *Server) GetInvoicePDF(c *gin.Context) {
	invoiceID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, view, err := s.invoiceSvc.RenderInvoicePDF(c.Request.Context(), credentialFrom(c), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", view.InvoiceNumber+".pdf"))
	c.Data(http.StatusOK, "application/pdf", body)
}
