package backend

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// createPerson stores the person specified in the request's JSON. It responds with the stored
// person including the newly assigned id.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/personnes --request "POST" --include --header "Content-Type: application/json" --data '{"nom": "Diop", "prenom": "fatou", "telephone": "771234567"}'
func (h *handler) createPerson(c *gin.Context) {
	var submitted model.Person
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"status": http.StatusBadRequest, "error": "Bad Request", "message": "invalid JSON"})
		return
	}
	created, err := h.service.Create(c.Request.Context(), submitted)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, created)
}

// findPersons responds with the list of persons as JSON. The optional URL parameters 'nom',
// 'prenom' and 'telephone' filter by substring, names ignoring case.
//
// REST API calls:
//
//	> curl "http://localhost:8080/api/personnes"
//	> curl "http://localhost:8080/api/personnes?nom=dio&telephone=77"
func (h *handler) findPersons(c *gin.Context) {
	criteria := model.SearchCriteria{
		LastName:  c.Query("nom"),
		FirstName: c.Query("prenom"),
		Phone:     c.Query("telephone"),
	}
	var (
		persons []model.Person
		err     error
	)
	if criteria.IsEmpty() {
		persons, err = h.service.FindAll(c.Request.Context())
	} else {
		persons, err = h.service.Search(c.Request.Context(), criteria)
	}
	if err != nil {
		h.abort(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, persons)
}

// findPersonByID responds with the person whose id matches the id parameter of the URL.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/personnes/56
func (h *handler) findPersonByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.service.FindByID(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, p)
}

// updatePerson replaces all fields of the person whose id matches the id parameter of the URL
// and responds with the new version of the person.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/personnes/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"nom": "Diop", "prenom": "Awa"}'
func (h *handler) updatePerson(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var submitted model.Person
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"status": http.StatusBadRequest, "error": "Bad Request", "message": "invalid JSON"})
		return
	}
	updated, err := h.service.Update(c.Request.Context(), id, submitted)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, updated)
}

// deletePerson deletes the person whose id matches the id parameter of the URL. It responds
// with NO CONTENT.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/personnes/56 --request "DELETE"
func (h *handler) deletePerson(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseID reads the id parameter of the URL. Anything that is not a positive number answers
// NOT FOUND.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"status": http.StatusNotFound, "error": "Not Found", "message": "invalid id parameter"})
		return 0, false
	}
	return id, true
}
