/*
Package backend implements the REST API of the drinks service

The backend registers all routes on a mux router:

	GET    /drinks          public, short form of all drinks
	GET    /drinks-detail   permission get:drinks-detail, long form of all drinks
	POST   /drinks          permission post:drinks, create a drink
	PATCH  /drinks/{id}     permission patch:drinks, update a drink
	DELETE /drinks/{id}     permission delete:drinks, delete a drink
	GET    /version         build version
	GET    /metrics         prometheus metrics

Successful responses have the form

	{"success": true, "drinks": [...]}

and errors the form

	{"success": false, "error": 404, "message": "resource not found"}

Request bodies of POST and PATCH carry "title" and "recipe", either form
encoded, as JSON object, or as raw JSON body. The recipe is a list of
ingredients or a single ingredient, or the same as JSON text:

	{
	  "title": "Mocha",
	  "recipe": [{"name": "coffee", "color": "brown", "parts": 1}]
	}

Every successful mutation is passed to the notifier.
*/
package backend
