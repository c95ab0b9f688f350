package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/swdee/go-frcnn"
	"github.com/swdee/go-frcnn/preprocess"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	modelFile := flag.String("m", "../data/fasterrcnn_resnet50_fpn.onnx", "ONNX exported Faster R-CNN model file")
	imgFiles := flag.String("i", "../data/bus.jpg", "Comma separated image files to run object detection on")
	labelsFile := flag.String("l", "", "Optional label file, one label per line with background first")
	batchSize := flag.Int("b", 1, "Number of images per inference batch")
	boxThresh := flag.Float64("t", 0.05, "Minimum class probability of a detection")
	numDets := flag.Int("n", 100, "Maximum detections per image")
	useCUDA := flag.Bool("cuda", false, "Run the model on a CUDA device if available")
	query := flag.Bool("q", false, "Print the model input and output tensors")
	verbose := flag.Bool("v", false, "Enable debug logging")

	flag.Parse()

	if *query {
		if err := frcnn.QueryModel(os.Stdout, *modelFile); err != nil {
			log.Fatal("Error querying model: ", err)
		}
	}

	logCfg := zap.NewDevelopmentConfig()

	if !*verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := logCfg.Build()

	if err != nil {
		log.Fatal("Error creating logger: ", err)
	}

	defer logger.Sync()

	cfg := frcnn.DefaultConfig()
	cfg.ModelFile = *modelFile
	cfg.LabelsFile = *labelsFile
	cfg.ImgBatchSize = *batchSize
	cfg.BoxThresh = *boxThresh
	cfg.NumDets = *numDets
	cfg.UseCUDA = *useCUDA

	detector, err := frcnn.NewResNetFRCNN(cfg, frcnn.WithLogger(logger))

	if err != nil {
		log.Fatal("Error creating detector: ", err)
	}

	defer detector.Close()

	// load images
	files := strings.Split(*imgFiles, ",")
	imgs := make([]gocv.Mat, 0, len(files))

	for _, file := range files {
		img, err := preprocess.LoadImage(strings.TrimSpace(file))

		if err != nil {
			log.Fatal("Error reading image: ", err)
		}

		defer img.Close()
		imgs = append(imgs, img)
	}

	start := time.Now()

	dets, err := detector.DetectObjects(context.Background(), imgs)

	if err != nil {
		log.Fatal("Object detection failed with error: ", err)
	}

	log.Printf("Detection on %d images took %s\n", len(imgs), time.Since(start))

	for i, imgDets := range dets {
		fmt.Printf("%s: %d detections\n", files[i], len(imgDets))

		for _, det := range imgDets {
			top, score, _ := det.Scores.Top()
			lo, hi := det.Box.MinVertex(), det.Box.MaxVertex()

			fmt.Printf("  %s @ (%.1f %.1f %.1f %.1f) %f\n", top.Name,
				lo[0], lo[1], hi[0], hi[1], score)
		}
	}

	log.Println("done")
}
