package clients

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Clients proxies gateway requests to the owning services. Every call is
// bounded by a 5s timeout; a slow peer surfaces as 504 rather than a hung
// gateway worker.
type Clients struct {
	Booking string
	Payment string
	Room    string
	http    *http.Client
}

func New(bookingBase, paymentBase, roomBase string) *Clients {
	return &Clients{
		Booking: bookingBase,
		Payment: paymentBase,
		Room:    roomBase,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Forward relays the inbound request to base+path and copies the response
// back verbatim.
func (cl *Clients) Forward(c *gin.Context, method, base, path string) {
	req, err := http.NewRequestWithContext(c.Request.Context(), method, base+path, c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := cl.http.Do(req)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Data(res.StatusCode, res.Header.Get("Content-Type"), body)
}
