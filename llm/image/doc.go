// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 image 定义文生图请求模型与解码后的图像批次。

# 概述

本包不做任何网络调用，只负责两件事：描述一次生成请求
（GenerateRequest），以及把下载到的图像字节转换为宿主可以直接
使用的浮点张量（Tensor / Batch）。

# 核心类型

  - GenerateRequest：模型、提示词、反向提示词、宽高比、数量、
    种子与参考强度；Validate 检查取值范围，WithDefaults 填充默认值。
  - Tensor：单张 RGB 图像，HWC 布局，取值 [0,1]。
  - Batch：按顺序堆叠的 [N, H, W, 3] 图像，同时记录实际使用的种子。

# 解码

DecodeRGB 支持 PNG、JPEG、GIF 与 WebP，统一转换为 RGB（丢弃 alpha）。
Stack 要求所有图像尺寸一致。EncodePNG 用于 CLI 与 HTTP 宿主输出结果。
*/
package image
