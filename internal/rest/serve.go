// Copyright (C) 2021 The ffdnet-go authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ffdnet-go/ffdnet/internal/dataset"
	"github.com/ffdnet-go/ffdnet/internal/img"
	"github.com/ffdnet-go/ffdnet/internal/noise"
	"gorgonia.org/tensor"
)

// Read-only inspection API for dataset stores. Combine with MakeSandbox
// when exposing beyond localhost.
func Serve(addr string) error {
	return router().Run(addr)
}

func router() *gin.Engine {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/stores", getStoreInfo)
			v1.GET("/entry.png", getEntry)
			v1.GET("/noisemap.png", getNoiseMap)
		}
	}
	return r
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

// Store paths from the network are confined to the working directory:
// relative paths only, no parent traversal
func isPathAllowed(path string) bool {
	if path == "" || filepath.IsAbs(path) {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

func storePath(c *gin.Context) (string, bool) {
	path := c.Query("path")
	if !isPathAllowed(path) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path must be relative and must not contain .."})
		return "", false
	}
	return path, true
}

func getStoreInfo(c *gin.Context) {
	path, ok := storePath(c)
	if !ok {
		return
	}
	count, shape, err := dataset.Info(path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "count": count, "shape": shape})
}

// Loads entry `index` of the store `path` as (C,H,W) float32 data
func readIndexedEntry(c *gin.Context) (shape []int, data []float32, ok bool) {
	path, pathOK := storePath(c)
	if !pathOK {
		return nil, nil, false
	}
	index, err := strconv.Atoi(c.Query("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a non-negative integer"})
		return nil, nil, false
	}
	shape, data, err = dataset.ReadEntry(path, strconv.Itoa(index))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	if len(shape) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entry is not (channels, height, width) image data"})
		return nil, nil, false
	}
	return shape, data, true
}

func servePNG(c *gin.Context, m *image.NRGBA) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func getEntry(c *gin.Context) {
	shape, data, ok := readIndexedEntry(c)
	if !ok {
		return
	}
	m, err := img.ToNRGBA(data, shape[0], shape[1], shape[2])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	servePNG(c, m)
}

// Parses the noise mode query parameters, with defaults matching the CLI
func modeFromQuery(c *gin.Context) (noise.Mode, bool) {
	low, err := strconv.ParseFloat(c.DefaultQuery("intervalLow", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid intervalLow: " + err.Error()})
		return nil, false
	}
	high, err := strconv.ParseFloat(c.DefaultQuery("intervalHigh", "0.2"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid intervalHigh: " + err.Error()})
		return nil, false
	}
	kernelSize, err := strconv.Atoi(c.DefaultQuery("kernelSize", "5"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kernelSize: " + err.Error()})
		return nil, false
	}
	ycbcr, err := strconv.ParseBool(c.DefaultQuery("ycbcr", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ycbcr: " + err.Error()})
		return nil, false
	}
	mode, err := noise.ParseMode(c.DefaultQuery("mode", "synthetic"),
		low, high, kernelSize, c.DefaultQuery("waveletMethod", noise.BayesShrink), ycbcr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return mode, true
}

// Rebuilds the noise map for one store entry under the given mode and
// renders it as a heat map
func getNoiseMap(c *gin.Context) {
	shape, data, ok := readIndexedEntry(c)
	if !ok {
		return
	}
	mode, ok := modeFromQuery(c)
	if !ok {
		return
	}
	est, err := noise.New(mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch := tensor.New(tensor.WithShape(1, shape[0], shape[1], shape[2]), tensor.WithBacking(data))
	_, _, _, noiseMap, err := est.MakeInputs(batch)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	m, err := img.HeatMap(noiseMap.Data().([]float32), shape[0], shape[1], shape[2])
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	servePNG(c, m)
}
